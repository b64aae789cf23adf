// Package httpx holds the small HTTP helpers shared by the request and
// response entities: MIME lookup, media type matching, freshness, Vary merging
// and Location encoding.
package httpx

import (
	"mime"
	"path"
	"strings"
)

// mimeTypes maps a bare extension onto its media type.
var mimeTypes = map[string]string{
	"7z":    "application/x-7z-compressed",
	"atom":  "application/atom+xml",
	"avif":  "image/avif",
	"bin":   "application/octet-stream",
	"bmp":   "image/bmp",
	"conf":  "text/plain",
	"css":   "text/css",
	"csv":   "text/csv",
	"deb":   "application/octet-stream",
	"dll":   "application/octet-stream",
	"dmg":   "application/octet-stream",
	"doc":   "application/msword",
	"exe":   "application/octet-stream",
	"flv":   "video/x-flv",
	"gif":   "image/gif",
	"gz":    "application/gzip",
	"htm":   "text/html",
	"html":  "text/html",
	"ico":   "image/x-icon",
	"img":   "application/octet-stream",
	"iso":   "application/octet-stream",
	"jar":   "application/java-archive",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"js":    "application/javascript",
	"json":  "application/json",
	"log":   "text/plain",
	"m4a":   "audio/mp4",
	"md":    "text/markdown",
	"mjs":   "application/javascript",
	"mov":   "video/quicktime",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"mpeg":  "video/mpeg",
	"mpg":   "video/mpeg",
	"pdf":   "application/pdf",
	"png":   "image/png",
	"ppt":   "application/vnd.ms-powerpoint",
	"ps":    "application/postscript",
	"rar":   "application/vnd.rar",
	"rss":   "application/rss+xml",
	"rtf":   "application/rtf",
	"svg":   "image/svg+xml",
	"tar":   "application/x-tar",
	"text":  "text/plain",
	"txt":   "text/plain",
	"wasm":  "application/wasm",
	"webm":  "video/webm",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xls":   "application/vnd.ms-excel",
	"xml":   "application/xml",
	"yaml":  "text/yaml",
	"yml":   "text/yaml",
	"zip":   "application/zip",
}

// utf8Types carry a utf-8 charset even though they are not text/*.
var utf8Types = map[string]bool{
	"application/javascript": true,
	"application/json":       true,
}

// Lookup resolves an extension, a dotted extension or a file name onto its
// bare media type.
func Lookup(s string) (string, bool) {
	if s == "" {
		return "", false
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext("x."+s), "."))
	if ext == "" {
		return "", false
	}

	if typ, ok := mimeTypes[ext]; ok {
		return typ, true
	}

	typ := mime.TypeByExtension("." + ext)
	if typ == "" {
		return "", false
	}

	base, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return "", false
	}

	return base, true
}

// ContentType turns a short name, an extension or a full media type into a
// Content-Type value, adding a utf-8 charset where the type calls for one.
func ContentType(s string) (string, bool) {
	typ := s
	if !strings.Contains(s, "/") {
		var ok bool
		if typ, ok = Lookup(s); !ok {
			return "", false
		}
	}

	if strings.Contains(typ, "charset") {
		return typ, true
	}

	if cs := charsetOf(typ); cs != "" {
		typ += "; charset=" + cs
	}

	return typ, true
}

func charsetOf(typ string) string {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(typ, ";", 2)[0]))
	if strings.HasPrefix(base, "text/") || utf8Types[base] {
		return "utf-8"
	}

	return ""
}

package httpx

import (
	"net/http"
	"regexp"
	"strings"
)

var noCacheRe = regexp.MustCompile(`(?:^|,)\s*?no-cache\s*?(?:,|$)`)

// Fresh reports whether a cached representation described by the request's
// conditional headers is still valid for the response headers.
func Fresh(req, res http.Header) bool {
	modifiedSince := req.Get("If-Modified-Since")
	noneMatch := req.Get("If-None-Match")
	if modifiedSince == "" && noneMatch == "" {
		return false
	}

	if cc := req.Get("Cache-Control"); cc != "" && noCacheRe.MatchString(cc) {
		return false
	}

	if noneMatch != "" && noneMatch != "*" {
		etag := res.Get("ETag")
		if etag == "" {
			return false
		}

		if !etagMatches(noneMatch, etag) {
			return false
		}
	}

	if modifiedSince != "" {
		lastModified := res.Get("Last-Modified")
		if lastModified == "" {
			return false
		}

		lm, err := http.ParseTime(lastModified)
		if err != nil {
			return false
		}

		ms, err := http.ParseTime(modifiedSince)
		if err != nil {
			return false
		}

		if lm.After(ms) {
			return false
		}
	}

	return true
}

func etagMatches(list, etag string) bool {
	for _, match := range parseTokenList(list) {
		if match == etag || match == "W/"+etag || "W/"+match == etag {
			return true
		}
	}

	return false
}

func parseTokenList(s string) []string {
	var list []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			list = append(list, tok)
		}
	}

	return list
}

package httpx

import (
	"mime"
	"strings"
)

// NormalizeMediaType strips parameters from a Content-Type value and lower
// cases the result. It reports false when the value is not a media type.
func NormalizeMediaType(v string) (string, bool) {
	if v == "" {
		return "", false
	}

	base, _, err := mime.ParseMediaType(v)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(strings.SplitN(v, ";", 2)[0]))
	}

	if strings.Count(base, "/") != 1 {
		return "", false
	}

	return base, true
}

// TypeIs matches a media type against a list of candidates. Candidates may be
// full types, wildcards ("text/*", "*/*"), suffixes ("+json"), extensions or
// the short names "urlencoded" and "multipart". With no candidates the
// normalized actual type is returned. The matching candidate is returned as
// given, except for wildcard and suffix candidates which yield the actual
// type.
func TypeIs(actual string, types ...string) (string, bool) {
	val, ok := NormalizeMediaType(actual)
	if !ok {
		return "", false
	}

	if len(types) == 0 {
		return val, true
	}

	for _, typ := range types {
		expected, ok := normalizeCandidate(typ)
		if !ok || !mimeMatch(expected, val) {
			continue
		}

		if strings.HasPrefix(typ, "+") || strings.Contains(typ, "*") {
			return val, true
		}

		return typ, true
	}

	return "", false
}

func normalizeCandidate(typ string) (string, bool) {
	switch typ {
	case "":
		return "", false
	case "urlencoded":
		return "application/x-www-form-urlencoded", true
	case "multipart":
		return "multipart/*", true
	}

	if typ[0] == '+' {
		return "*/*" + typ, true
	}

	if !strings.Contains(typ, "/") {
		return Lookup(typ)
	}

	return typ, true
}

func mimeMatch(expected, actual string) bool {
	ep := strings.Split(expected, "/")
	ap := strings.Split(actual, "/")
	if len(ep) != 2 || len(ap) != 2 {
		return false
	}

	if ep[0] != "*" && ep[0] != ap[0] {
		return false
	}

	if strings.HasPrefix(ep[1], "*+") {
		suffix := ep[1][1:]
		return len(ep[1]) <= len(ap[1])+1 && strings.HasSuffix(ap[1], suffix)
	}

	return ep[1] == "*" || ep[1] == ap[1]
}

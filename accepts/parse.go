package accepts

import (
	"strconv"
	"strings"
)

// spec is one parsed entry of an Accept-family header.
type spec struct {
	value   string // full value, "type/subtype" for media ranges
	typ     string // media type or language prefix
	subtype string // media subtype or language suffix
	params  map[string]string
	q       float64
	i       int
}

// priority is the result of matching an offer against the parsed header.
type priority struct {
	i int     // index of the offer
	o int     // index of the header entry it matched
	q float64 // quality of that entry
	s int     // specificity of the match
}

func less(a, b priority) bool {
	if a.q != b.q {
		return a.q > b.q
	}
	if a.s != b.s {
		return a.s > b.s
	}
	if a.o != b.o {
		return a.o < b.o
	}
	return a.i < b.i
}

// better reports whether candidate should replace the current best match
// for a single offer.
func better(cur, cand priority) bool {
	if d := cur.s - cand.s; d != 0 {
		return d < 0
	}
	if cur.q != cand.q {
		return cur.q < cand.q
	}
	return cur.o < cand.o
}

// splitQuoted splits s on sep, ignoring separators inside double quotes.
func splitQuoted(s string, sep byte) []string {
	var parts []string
	inQuote, start := false, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, s[start:])
}

// parseParams parses ";"-separated key=value pairs. It stops at the q
// parameter, which it returns separately.
func parseParams(s string) (params map[string]string, q float64, ok bool) {
	params, q = map[string]string{}, 1
	if strings.TrimSpace(s) == "" {
		return params, q, true
	}

	for _, kv := range splitQuoted(s, ';') {
		key, val, _ := strings.Cut(strings.TrimSpace(kv), "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if len(val) > 1 && val[0] == '"' && val[len(val)-1] == '"' {
			val = strings.ReplaceAll(val[1:len(val)-1], `\"`, `"`)
		}

		if key == "q" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, 0, false
			}
			q = f
			break
		}

		if key != "" {
			params[key] = val
		}
	}

	return params, q, true
}

// parseSimple parses an entry of the form "token[;params]" as used by
// Accept-Charset and Accept-Encoding.
func parseSimple(s string, i int) (spec, bool) {
	s = strings.TrimSpace(s)
	token, rest, _ := strings.Cut(s, ";")
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return spec{}, false
	}

	params, q, ok := parseParams(rest)
	if !ok {
		return spec{}, false
	}

	return spec{value: token, params: params, q: q, i: i}, true
}

func parseMediaRange(s string, i int) (spec, bool) {
	s = strings.TrimSpace(s)
	full, rest, _ := strings.Cut(s, ";")
	full = strings.TrimSpace(full)

	typ, subtype, found := strings.Cut(full, "/")
	if !found || typ == "" || subtype == "" || strings.ContainsAny(full, " \t") {
		return spec{}, false
	}

	params, q, ok := parseParams(rest)
	if !ok {
		return spec{}, false
	}

	return spec{value: typ + "/" + subtype, typ: typ, subtype: subtype, params: params, q: q, i: i}, true
}

func parseLanguage(s string, i int) (spec, bool) {
	s = strings.TrimSpace(s)
	full, rest, _ := strings.Cut(s, ";")
	full = strings.TrimSpace(full)
	if full == "" || strings.ContainsAny(full, " \t") {
		return spec{}, false
	}

	prefix, suffix, _ := strings.Cut(full, "-")
	if prefix == "" {
		return spec{}, false
	}

	params, q, ok := parseParams(rest)
	if !ok {
		return spec{}, false
	}

	return spec{value: full, typ: prefix, subtype: suffix, params: params, q: q, i: i}, true
}

func parseList(header string, parse func(string, int) (spec, bool)) []spec {
	var specs []spec
	for i, part := range splitQuoted(header, ',') {
		if sp, ok := parse(part, i); ok {
			specs = append(specs, sp)
		}
	}

	return specs
}

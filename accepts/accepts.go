// Package accepts negotiates response variants against a request's Accept,
// Accept-Charset, Accept-Encoding and Accept-Language headers.
//
// Each dimension has a best-match method that takes the offers the server can
// produce, and a list method that returns the client's preferences in order.
// Ordering is by quality, then by how specific the matching entry is, then
// by header position, then by offer position.
package accepts

import (
	"net/http"
	"sort"
	"strings"

	"github.com/advdv/bkoa/internal/httpx"
	"github.com/samber/lo"
)

// Accepts negotiates against a fixed set of request headers.
type Accepts struct {
	header http.Header
}

// New returns a negotiator for the given request headers.
func New(h http.Header) *Accepts {
	if h == nil {
		h = http.Header{}
	}

	return &Accepts{header: h}
}

// raw returns the header value and whether the header was present at all.
func (a *Accepts) raw(name string) (string, bool) {
	vals, ok := a.header[http.CanonicalHeaderKey(name)]
	if !ok {
		return "", false
	}

	return strings.Join(vals, ","), true
}

// Type returns the best of the offered types. Offers may be full media types
// or extensions such as "json" and "html". When the request has no Accept
// header the first offer wins. With no offers the client's most preferred
// type is returned.
func (a *Accepts) Type(offers ...string) (string, bool) {
	if len(offers) == 0 {
		return first(a.Types())
	}

	if h, _ := a.raw("Accept"); h == "" {
		return offers[0], true
	}

	mimes := lo.Map(offers, func(o string, _ int) string {
		if strings.Contains(o, "/") {
			return o
		}
		typ, _ := httpx.Lookup(o)
		return typ
	})

	valid := lo.Filter(mimes, func(m string, _ int) bool { return m != "" })
	if len(valid) == 0 {
		return "", false
	}

	best, ok := first(a.mediaTypes(valid))
	if !ok {
		return "", false
	}

	return offers[lo.IndexOf(mimes, best)], true
}

// Types returns the accepted media ranges in preference order.
func (a *Accepts) Types() []string { return a.mediaTypes(nil) }

// Encoding returns the best of the offered content codings. Identity is
// acceptable unless the client refuses it explicitly.
func (a *Accepts) Encoding(offers ...string) (string, bool) {
	if len(offers) == 0 {
		return first(a.Encodings())
	}

	return first(a.encodings(offers))
}

// Encodings returns the accepted codings in preference order.
func (a *Accepts) Encodings() []string { return a.encodings(nil) }

// Charset returns the best of the offered charsets.
func (a *Accepts) Charset(offers ...string) (string, bool) {
	if len(offers) == 0 {
		return first(a.Charsets())
	}

	return first(a.charsets(offers))
}

// Charsets returns the accepted charsets in preference order.
func (a *Accepts) Charsets() []string { return a.charsets(nil) }

// Language returns the best of the offered languages.
func (a *Accepts) Language(offers ...string) (string, bool) {
	if len(offers) == 0 {
		return first(a.Languages())
	}

	return first(a.languages(offers))
}

// Languages returns the accepted languages in preference order.
func (a *Accepts) Languages() []string { return a.languages(nil) }

func first(list []string) (string, bool) {
	if len(list) == 0 {
		return "", false
	}

	return list[0], true
}

func (a *Accepts) mediaTypes(provided []string) []string {
	header, ok := a.raw("Accept")
	if !ok {
		header = "*/*"
	}

	accepted := parseList(header, parseMediaRange)
	return negotiate(accepted, provided, func(offer string, sp spec, i int) (priority, bool) {
		p, ok := parseMediaRange(offer, i)
		if !ok {
			return priority{}, false
		}

		s := 0
		switch {
		case strings.EqualFold(sp.typ, p.typ):
			s |= 4
		case sp.typ != "*":
			return priority{}, false
		}

		switch {
		case strings.EqualFold(sp.subtype, p.subtype):
			s |= 2
		case sp.subtype != "*":
			return priority{}, false
		}

		if len(sp.params) > 0 {
			for k, v := range sp.params {
				if v != "*" && !strings.EqualFold(v, p.params[k]) {
					return priority{}, false
				}
			}
			s |= 1
		}

		return priority{i: i, o: sp.i, q: sp.q, s: s}, true
	})
}

func (a *Accepts) charsets(provided []string) []string {
	header, ok := a.raw("Accept-Charset")
	if !ok {
		header = "*"
	}

	return negotiate(parseList(header, parseSimple), provided, matchSimple)
}

func (a *Accepts) encodings(provided []string) []string {
	header, _ := a.raw("Accept-Encoding")
	accepted := parseList(header, parseSimple)

	hasIdentity, minQ := false, 1.0
	for _, sp := range accepted {
		if _, ok := matchSimple("identity", sp, 0); ok {
			hasIdentity = true
		}
		if sp.q > 0 && sp.q < minQ {
			minQ = sp.q
		}
	}

	if !hasIdentity {
		accepted = append(accepted, spec{value: "identity", q: minQ, i: len(splitQuoted(header, ','))})
	}

	return negotiate(accepted, provided, matchSimple)
}

func (a *Accepts) languages(provided []string) []string {
	header, ok := a.raw("Accept-Language")
	if !ok {
		header = "*"
	}

	accepted := parseList(header, parseLanguage)
	return negotiate(accepted, provided, func(offer string, sp spec, i int) (priority, bool) {
		p, ok := parseLanguage(offer, i)
		if !ok {
			return priority{}, false
		}

		s := 0
		switch {
		case strings.EqualFold(sp.value, p.value):
			s |= 4
		case strings.EqualFold(sp.typ, p.value):
			s |= 2
		case strings.EqualFold(sp.value, p.typ):
			s |= 1
		case sp.value != "*":
			return priority{}, false
		}

		return priority{i: i, o: sp.i, q: sp.q, s: s}, true
	})
}

func matchSimple(offer string, sp spec, i int) (priority, bool) {
	s := 0
	switch {
	case strings.EqualFold(sp.value, offer):
		s |= 1
	case sp.value != "*":
		return priority{}, false
	}

	return priority{i: i, o: sp.i, q: sp.q, s: s}, true
}

type matcher func(offer string, sp spec, i int) (priority, bool)

// negotiate orders provided offers by their best match in accepted. With no
// offers it orders the header entries themselves.
func negotiate(accepted []spec, provided []string, match matcher) []string {
	if provided == nil {
		specs := lo.Filter(accepted, func(sp spec, _ int) bool { return sp.q > 0 })
		sort.SliceStable(specs, func(i, j int) bool {
			return less(
				priority{o: specs[i].i, q: specs[i].q},
				priority{o: specs[j].i, q: specs[j].q})
		})

		return lo.Map(specs, func(sp spec, _ int) string { return sp.value })
	}

	prios := make([]priority, 0, len(provided))
	for i, offer := range provided {
		best := priority{i: i, o: -1}
		for _, sp := range accepted {
			if cand, ok := match(offer, sp, i); ok && better(best, cand) {
				best = cand
			}
		}

		if best.q > 0 {
			prios = append(prios, best)
		}
	}

	sort.SliceStable(prios, func(i, j int) bool { return less(prios[i], prios[j]) })
	return lo.Map(prios, func(p priority, _ int) string { return provided[p.i] })
}

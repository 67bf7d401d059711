package negotiate

import (
	"net/url"
	"strings"

	"github.com/munnerz/goautoneg"
)

const (
	mimeHTML = "text/html"
	mimeJSON = "application/json"
)

// Signals are the request inputs that drive negotiation.
type Signals struct {
	// ExplicitType is the value of the "type" query parameter; HasType
	// distinguishes "?type=" from an absent parameter.
	ExplicitType string
	HasType      bool
	// QueryKeys are the query-string keys in the order they were received.
	QueryKeys []string
	UserAgent string
	// Accept is the raw Accept header; HasAccept is false when it was absent.
	Accept    string
	HasAccept bool
}

// Negotiate picks the output format. The first matching rule wins:
//
//  1. an explicit type, resolved through the alias table (unknown → JSON)
//  2. the first query key that is itself an alias, e.g. "?yaml"
//  3. a User-Agent starting with "curl/" → CLI
//  4. Accept negotiation between text/html and application/json
//  5. JSON
func Negotiate(s Signals) Format {
	if s.HasType {
		if f, ok := Lookup(s.ExplicitType); ok {
			return f
		}
		return JSON
	}
	for _, k := range s.QueryKeys {
		if f, ok := Lookup(k); ok {
			return f
		}
	}
	if strings.HasPrefix(s.UserAgent, "curl/") {
		return CLI
	}
	switch acceptPreference(s.Accept, s.HasAccept) {
	case mimeHTML:
		return HTML
	case mimeJSON:
		return JSON
	}
	return JSON
}

// acceptPreference returns the preferred candidate media type, or "" when
// the client accepts neither. A missing Accept header accepts anything, so the
// first candidate (HTML) wins.
func acceptPreference(accept string, present bool) string {
	if !present {
		return mimeHTML
	}
	clauses := goautoneg.ParseAccept(accept)
	best, bestQ, bestRank := "", 0.0, len(clauses)
	for _, candidate := range []string{mimeHTML, mimeJSON} {
		q, rank := quality(clauses, candidate)
		if q <= 0 {
			continue
		}
		if q > bestQ || (q == bestQ && rank < bestRank) {
			best, bestQ, bestRank = candidate, q, rank
		}
	}
	return best
}

// quality returns the q-value the most specific matching clause gives mime,
// and that clause's position. A q=0 clause refuses the type even when a
// wildcard would accept it.
func quality(clauses []goautoneg.Accept, mime string) (float64, int) {
	typ, sub, _ := strings.Cut(mime, "/")
	q, rank, specificity := 0.0, len(clauses), -1
	for i, c := range clauses {
		s := -1
		switch {
		case c.Type == typ && c.SubType == sub:
			s = 2
		case c.Type == typ && c.SubType == "*":
			s = 1
		case c.Type == "*" && c.SubType == "*":
			s = 0
		}
		if s > specificity {
			q, rank, specificity = c.Q, i, s
		}
	}
	return q, rank
}

// QueryKeys returns the keys of a raw query string in order of appearance,
// unescaped and without duplicates.
func QueryKeys(rawQuery string) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, _, _ := strings.Cut(part, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// FromQuery builds Signals from a parsed URL and request headers.
func FromQuery(u *url.URL, userAgent string, accept []string) Signals {
	q := u.Query()
	s := Signals{
		QueryKeys: QueryKeys(u.RawQuery),
		UserAgent: userAgent,
	}
	if vals, ok := q["type"]; ok {
		s.HasType = true
		s.ExplicitType = vals[0]
	}
	if len(accept) > 0 {
		s.HasAccept = true
		s.Accept = strings.Join(accept, ",")
	}
	return s
}

package assertion

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// QueryKind selects which part of a response a query reads.
type QueryKind int

const (
	QueryStatus QueryKind = iota + 1
	QueryHeader
	QueryBody
	QueryJSONPath
	QueryRegex
	QueryCookie
	QueryDuration
	QueryCertificate
)

var queryNames = map[QueryKind]string{
	QueryStatus:      "status",
	QueryHeader:      "header",
	QueryBody:        "body",
	QueryJSONPath:    "jsonpath",
	QueryRegex:       "regex",
	QueryCookie:      "cookie",
	QueryDuration:    "duration",
	QueryCertificate: "certificate",
}

// Query is a response selector such as "status" or "jsonpath[$.data.id]".
type Query struct {
	Kind QueryKind
	Arg  string
}

func (q Query) String() string {
	name := queryNames[q.Kind]
	if !q.Kind.takesArg() {
		return name
	}
	return name + "[" + q.Arg + "]"
}

func (k QueryKind) takesArg() bool {
	switch k {
	case QueryStatus, QueryBody, QueryDuration:
		return false
	}
	return true
}

// ParseQuery parses the compact query syntax. The argument runs from the
// first '[' to the final ']' so JSONPath filters and regex classes may
// contain brackets.
func ParseQuery(s string) (Query, error) {
	s = strings.TrimSpace(s)
	name, arg, hasArg := s, "", false
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Query{}, fmt.Errorf("query %q: missing closing ']'", s)
		}
		name, arg, hasArg = s[:i], s[i+1:len(s)-1], true
	}

	var kind QueryKind
	for k, n := range queryNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			kind = k
			break
		}
	}
	if kind == 0 {
		return Query{}, fmt.Errorf("query %q: unknown query type %q", s, name)
	}

	if kind.takesArg() {
		if !hasArg || strings.TrimSpace(arg) == "" {
			return Query{}, fmt.Errorf("query %q: %s requires an argument", s, queryNames[kind])
		}
	} else if hasArg {
		return Query{}, fmt.Errorf("query %q: %s takes no argument", s, queryNames[kind])
	}

	q := Query{Kind: kind, Arg: arg}
	switch kind {
	case QueryJSONPath:
		if _, err := jp.ParseString(arg); err != nil {
			return Query{}, fmt.Errorf("query %q: invalid JSONPath: %w", s, err)
		}
	case QueryRegex:
		if _, err := regexp.Compile(arg); err != nil {
			return Query{}, fmt.Errorf("query %q: invalid pattern: %w", s, err)
		}
	}
	return q, nil
}

// Resolve extracts the queried value from the response. The boolean is
// false when the query yields no value; a present JSON null is (nil, true).
func (q Query) Resolve(r *Response) (any, bool) {
	switch q.Kind {
	case QueryStatus:
		return int64(r.StatusCode), true

	case QueryHeader:
		vals := r.Header.Values(q.Arg)
		if len(vals) == 0 {
			return nil, false
		}
		return vals[0], true

	case QueryBody:
		return string(r.Body), true

	case QueryJSONPath:
		return resolveJSONPath(q.Arg, r.Body)

	case QueryRegex:
		re, err := regexp.Compile(q.Arg)
		if err != nil {
			return nil, false
		}
		loc := re.FindIndex(r.Body)
		if loc == nil {
			return nil, false
		}
		return string(r.Body[loc[0]:loc[1]]), true

	case QueryCookie:
		resp := http.Response{Header: r.Header}
		for _, c := range resp.Cookies() {
			if c.Name == q.Arg {
				return c.Value, true
			}
		}
		return nil, false

	case QueryDuration:
		return r.Duration.Milliseconds(), true

	case QueryCertificate:
		if r.Certificate == nil {
			return nil, false
		}
		return r.Certificate.Field(q.Arg)
	}
	return nil, false
}

func resolveJSONPath(path string, body []byte) (any, bool) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, false
	}
	data, err := oj.Parse(body)
	if err != nil {
		return nil, false
	}
	matches := x.Get(data)
	switch len(matches) {
	case 0:
		return nil, false
	case 1:
		return matches[0], true
	default:
		return matches, true
	}
}

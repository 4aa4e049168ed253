// Package assertion evaluates typed checks against captured HTTP responses.
//
// An Assertion pairs a Query (which part of the response to read) with a
// Predicate and an expected Value. Assertions are stateless and evaluated
// fresh for every response.
package assertion

import (
	"fmt"
	"net/http"
	"time"
)

// Certificate exposes the fields of an inspected TLS certificate.
type Certificate interface {
	Field(name string) (any, bool)
}

// Response is the snapshot of one HTTP exchange that assertions run against.
type Response struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	Duration    time.Duration
	Certificate Certificate // nil when no certificate was captured
}

// Assertion is a single (query, predicate, expected) rule.
type Assertion struct {
	Query     Query
	Predicate Predicate
	Expected  Value
}

// New builds an assertion from its configuration form.
func New(query, predicate string, expected any) (Assertion, error) {
	q, err := ParseQuery(query)
	if err != nil {
		return Assertion{}, err
	}
	p, err := ParsePredicate(predicate)
	if err != nil {
		return Assertion{}, err
	}
	v, err := ValueOf(expected)
	if err != nil {
		return Assertion{}, fmt.Errorf("assertion %s %s: %w", q, p, err)
	}
	return Assertion{Query: q, Predicate: p, Expected: v}, nil
}

func (a Assertion) String() string {
	return fmt.Sprintf("%s %s %s", a.Query, a.Predicate, a.Expected)
}

// Result is the outcome of evaluating one assertion.
type Result struct {
	Query     string  `json:"query"`
	Predicate string  `json:"predicate"`
	Passed    bool    `json:"passed"`
	Expected  string  `json:"expected"`
	Actual    *string `json:"actual,omitempty"`
	Message   string  `json:"message"`
}

// Evaluate resolves the query against r and applies the predicate.
// When the query yields no value only NotExists passes.
func Evaluate(a Assertion, r *Response) Result {
	res := Result{
		Query:     a.Query.String(),
		Predicate: a.Predicate.String(),
		Expected:  a.Expected.String(),
	}

	actual, ok := a.Query.Resolve(r)
	if !ok {
		res.Passed = a.Predicate == NotExists
		if res.Passed {
			res.Message = res.Query + " " + res.Predicate
		} else {
			res.Message = res.Query + " returned no value"
		}
		return res
	}

	text := formatActual(actual)
	res.Actual = &text
	res.Passed = a.Predicate.apply(actual, a.Expected)
	if res.Passed {
		res.Message = fmt.Sprintf("%s %s %s", res.Query, res.Predicate, res.Expected)
	} else {
		res.Message = fmt.Sprintf("%s %s %s (got: %s)", res.Query, res.Predicate, res.Expected, text)
	}
	return res
}

// EvaluateAll evaluates every assertion in order.
func EvaluateAll(assertions []Assertion, r *Response) []Result {
	results := make([]Result, 0, len(assertions))
	for _, a := range assertions {
		results = append(results, Evaluate(a, r))
	}
	return results
}

// Failures returns the messages of failed results, in evaluation order.
func Failures(results []Result) []string {
	var msgs []string
	for _, r := range results {
		if !r.Passed {
			msgs = append(msgs, r.Message)
		}
	}
	return msgs
}

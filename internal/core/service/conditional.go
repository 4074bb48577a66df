package service

import (
	"net/http"
	"strings"

	"github.com/yndnr/kiss-go/internal/core/domain"
)

// Outcome is the response chosen for a request.
type Outcome int

// Outcomes, in the order they are decided.
const (
	OutcomeNotFound Outcome = iota
	OutcomeMethodNotAllowed
	OutcomeNotModified
	OutcomeOK
	OutcomeHeadersOnly
)

// Status returns the HTTP status code sent for o.
func (o Outcome) Status() int {
	switch o {
	case OutcomeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case OutcomeNotModified:
		return http.StatusNotModified
	case OutcomeOK, OutcomeHeadersOnly:
		return http.StatusOK
	default:
		return http.StatusNotFound
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeMethodNotAllowed:
		return "method_not_allowed"
	case OutcomeNotModified:
		return "not_modified"
	case OutcomeOK:
		return "ok"
	case OutcomeHeadersOnly:
		return "headers_only"
	default:
		return "unknown"
	}
}

// Conditions carries the request validators. A header that was sent
// with an empty value is still present.
type Conditions struct {
	IfNoneMatch        string
	HasIfNoneMatch     bool
	IfModifiedSince    string
	HasIfModifiedSince bool
}

// Evaluate picks the precomputed response for a request against entry e.
// e is nil when the path did not resolve. For OutcomeNotFound and
// OutcomeMethodNotAllowed the returned buffer is nil and the caller sends
// its own fixed response.
//
// Evaluate is pure and safe for concurrent use.
func Evaluate(e *domain.Entry, method string, cond Conditions) (Outcome, []byte) {
	if e == nil {
		return OutcomeNotFound, nil
	}
	if method != http.MethodGet && method != http.MethodHead {
		return OutcomeMethodNotAllowed, nil
	}
	if NotModified(e, cond) {
		return OutcomeNotModified, e.NotModified()
	}
	if method == http.MethodHead {
		return OutcomeHeadersOnly, e.HeadersOnly()
	}
	return OutcomeOK, e.Full()
}

// NotModified reports whether the validators in cond match e.
//
// If-None-Match takes precedence: when present, If-Modified-Since is not
// consulted. An If-Modified-Since value that does not parse as an HTTP
// date is ignored.
func NotModified(e *domain.Entry, cond Conditions) bool {
	if cond.HasIfNoneMatch {
		return etagMatches(cond.IfNoneMatch, domain.OpaqueTag(e.ETag()))
	}
	if cond.HasIfModifiedSince {
		since, err := http.ParseTime(strings.TrimSpace(cond.IfModifiedSince))
		if err != nil {
			return false
		}
		return e.LastModified().Unix() <= since.Unix()
	}
	return false
}

// etagMatches compares a comma-separated If-None-Match list against an
// opaque tag using weak comparison.
func etagMatches(list, opaque string) bool {
	for list != "" {
		var tok string
		tok, list, _ = strings.Cut(list, ",")
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if tok == "*" {
			return true
		}
		if domain.OpaqueTag(tok) == opaque {
			return true
		}
	}
	return false
}

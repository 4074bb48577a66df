package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/kiss-go/internal/core/domain"
)

// Fixed endpoint paths answered before index lookup.
const (
	HealthPath = "/health"
	ReadyPath  = "/ready"
)

// DefaultRetryAfter is the Retry-After value, in seconds, sent with 503.
const DefaultRetryAfter = 1

// rendered is one precomputed response and its headers-only prefix.
type rendered struct {
	full []byte
	head []byte
}

// fixed is a precomputed response in its keep-alive and closing forms.
type fixed struct {
	keep  rendered
	close rendered
}

// buffer returns the variant for method and connection persistence.
func (f *fixed) buffer(method string, keepAlive bool) []byte {
	v := &f.close
	if keepAlive {
		v = &f.keep
	}
	if method == http.MethodHead {
		return v.head
	}
	return v.full
}

// final returns the complete closing response.
func (f *fixed) final() []byte {
	return f.close.full
}

// newFixed renders a complete response. Content-Length always matches
// body, including in the headers-only variant.
func newFixed(status int, contentType string, body []byte, extra ...string) *fixed {
	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(status))
	b.WriteByte(' ')
	b.WriteString(http.StatusText(status))
	b.WriteString("\r\n")
	if len(body) > 0 {
		b.WriteString("Content-Type: ")
		b.WriteString(contentType)
		b.WriteString("\r\n")
	}
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteString("\r\n")
	b.WriteString("Cache-Control: no-store\r\n")
	b.WriteString("X-Content-Type-Options: nosniff\r\n")
	for i := 0; i+1 < len(extra); i += 2 {
		b.WriteString(extra[i])
		b.WriteString(": ")
		b.WriteString(extra[i+1])
		b.WriteString("\r\n")
	}
	common := b.String()
	return &fixed{
		keep:  render(common, "Connection: keep-alive\r\n\r\n", body),
		close: render(common, "Connection: close\r\n\r\n", body),
	}
}

func render(common, conn string, body []byte) rendered {
	full := make([]byte, 0, len(common)+len(conn)+len(body))
	full = append(full, common...)
	full = append(full, conn...)
	headLen := len(full)
	full = append(full, body...)
	return rendered{
		full: full[:len(full):len(full)],
		head: full[:headLen:headLen],
	}
}

func textBody(status int) []byte {
	return []byte(http.StatusText(status) + "\n")
}

const textPlain = "text/plain; charset=utf-8"

// responses are the fixed error responses of a server. 400, 408 and
// 503 are only ever sent in their closing form.
type responses struct {
	badRequest       *fixed
	notFound         *fixed
	methodNotAllowed *fixed
	timeout          *fixed
	unavailable      *fixed
}

func newResponses(retryAfter int) *responses {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	r := &responses{}
	r.badRequest = newFixed(http.StatusBadRequest, textPlain, textBody(http.StatusBadRequest))
	r.notFound = newFixed(http.StatusNotFound, textPlain, textBody(http.StatusNotFound))
	r.methodNotAllowed = newFixed(http.StatusMethodNotAllowed, textPlain,
		textBody(http.StatusMethodNotAllowed), "Allow", "GET, HEAD")
	r.timeout = newFixed(http.StatusRequestTimeout, textPlain, textBody(http.StatusRequestTimeout))
	r.unavailable = newFixed(http.StatusServiceUnavailable, textPlain,
		textBody(http.StatusServiceUnavailable), "Retry-After", strconv.Itoa(retryAfter))
	return r
}

// probeSet holds the /health and /ready responses for one state.
type probeSet struct {
	health *fixed
	ready  *fixed
}

type probeBody struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

func newProbeSet(state domain.State) *probeSet {
	body, _ := json.Marshal(probeBody{Status: state.String(), Ready: state.Ready()})
	body = append(body, '\n')

	readyStatus := http.StatusServiceUnavailable
	if state.Ready() {
		readyStatus = http.StatusOK
	}
	return &probeSet{
		health: newFixed(http.StatusOK, "application/json", body),
		ready:  newFixed(readyStatus, "application/json", body),
	}
}

// probeSets precomputes the probe responses of every state.
func probeSets() map[domain.State]*probeSet {
	out := make(map[domain.State]*probeSet, 4)
	for _, s := range []domain.State{domain.StateStarting, domain.StateServing, domain.StateDraining, domain.StateStopped} {
		out[s] = newProbeSet(s)
	}
	return out
}

package httpserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/yndnr/kiss-go/internal/core/service"
)

// MaxHeadSize bounds the request line plus all header lines.
const MaxHeadSize = 8192

var (
	ErrMalformed    = errors.New("http: malformed request")
	ErrHeadTooLarge = errors.New("http: request head too large")
)

// Request is the parsed subset of an HTTP/1.x request head.
type Request struct {
	Method string
	Target string
	Minor  int // HTTP/1.<Minor>

	// Connection header tokens.
	Close     bool
	KeepAlive bool

	Conditions service.Conditions

	// HasBody is set when the head announces a body the server will not read.
	HasBody bool
}

func (r *Request) reset() {
	*r = Request{}
}

// Persistent reports whether the client allows the connection to be reused.
func (r *Request) Persistent() bool {
	if r.Close {
		return false
	}
	if r.Minor == 0 {
		return r.KeepAlive
	}
	return true
}

// ReadRequest reads one request head from br into req. The whole head,
// including blank lines before the request line, is bounded by
// MaxHeadSize.
//
// ErrHeadTooLarge and ErrMalformed are protocol violations; any other
// error comes from the underlying reader.
func ReadRequest(br *bufio.Reader, req *Request) error {
	req.reset()
	budget := MaxHeadSize

	var line []byte
	var err error
	for {
		line, err = readLine(br, &budget)
		if err != nil {
			return err
		}
		if len(line) > 0 {
			break
		}
	}
	if err := parseRequestLine(line, req); err != nil {
		return err
	}

	var contentLength int64 = -1
	for {
		line, err = readLine(br, &budget)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			return fmt.Errorf("%w: obsolete line folding", ErrMalformed)
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return fmt.Errorf("%w: header without colon", ErrMalformed)
		}
		name := line[:colon]
		if !isToken(name) {
			return fmt.Errorf("%w: invalid header name", ErrMalformed)
		}
		value := bytes.TrimSpace(line[colon+1:])

		switch {
		case equalFold(name, "Connection"):
			parseConnection(value, req)
		case equalFold(name, "If-None-Match"):
			if req.Conditions.HasIfNoneMatch {
				req.Conditions.IfNoneMatch += ", " + string(value)
			} else {
				req.Conditions.IfNoneMatch = string(value)
				req.Conditions.HasIfNoneMatch = true
			}
		case equalFold(name, "If-Modified-Since"):
			if !req.Conditions.HasIfModifiedSince {
				req.Conditions.IfModifiedSince = string(value)
				req.Conditions.HasIfModifiedSince = true
			}
		case equalFold(name, "Content-Length"):
			n, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil || n < 0 || value[0] == '+' {
				return fmt.Errorf("%w: invalid Content-Length", ErrMalformed)
			}
			if contentLength >= 0 && contentLength != n {
				return fmt.Errorf("%w: conflicting Content-Length", ErrMalformed)
			}
			contentLength = n
			if n > 0 {
				req.HasBody = true
			}
		case equalFold(name, "Transfer-Encoding"):
			req.HasBody = true
		}
	}
}

// parseRequestLine parses "METHOD SP target SP HTTP/1.x".
func parseRequestLine(line []byte, req *Request) error {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return fmt.Errorf("%w: bad request line", ErrMalformed)
	}
	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return fmt.Errorf("%w: bad request line", ErrMalformed)
	}
	method, target, proto := line[:sp1], rest[:sp2], rest[sp2+1:]

	if !isToken(method) {
		return fmt.Errorf("%w: bad method", ErrMalformed)
	}
	for _, c := range target {
		if c <= ' ' || c == 0x7f {
			return fmt.Errorf("%w: bad request target", ErrMalformed)
		}
	}
	switch string(proto) {
	case "HTTP/1.1":
		req.Minor = 1
	case "HTTP/1.0":
		req.Minor = 0
	default:
		return fmt.Errorf("%w: unsupported version %q", ErrMalformed, proto)
	}

	req.Method = internMethod(method)
	req.Target = string(target)
	return nil
}

// readLine returns the next line without its terminator, charging its
// length against budget. A bare LF terminator is accepted.
//
// The returned slice aliases the reader's buffer and is only valid until
// the next read.
func readLine(br *bufio.Reader, budget *int) ([]byte, error) {
	line, err := br.ReadSlice('\n')
	if len(line) > *budget {
		return nil, ErrHeadTooLarge
	}
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, ErrHeadTooLarge
		}
		return nil, err
	}
	*budget -= len(line)

	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	if bytes.IndexByte(line, '\r') >= 0 || bytes.IndexByte(line, 0) >= 0 {
		return nil, fmt.Errorf("%w: stray control byte", ErrMalformed)
	}
	return line, nil
}

func parseConnection(value []byte, req *Request) {
	for len(value) > 0 {
		var tok []byte
		if i := bytes.IndexByte(value, ','); i >= 0 {
			tok, value = value[:i], value[i+1:]
		} else {
			tok, value = value, nil
		}
		tok = bytes.TrimSpace(tok)
		switch {
		case equalFold(tok, "close"):
			req.Close = true
		case equalFold(tok, "keep-alive"):
			req.KeepAlive = true
		}
	}
}

// internMethod avoids an allocation for the common methods.
func internMethod(b []byte) string {
	switch string(b) {
	case "GET":
		return "GET"
	case "HEAD":
		return "HEAD"
	case "POST":
		return "POST"
	case "PUT":
		return "PUT"
	case "DELETE":
		return "DELETE"
	case "OPTIONS":
		return "OPTIONS"
	}
	return string(b)
}

func equalFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		d := s[i]
		if 'A' <= d && d <= 'Z' {
			d += 'a' - 'A'
		}
		if c != d {
			return false
		}
	}
	return true
}

// isToken reports whether b is a non-empty RFC 9110 token.
func isToken(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if !isTchar(c) {
			return false
		}
	}
	return true
}

func isTchar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

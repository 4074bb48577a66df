package httpserver

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func readString(t *testing.T, input string) (*Request, error) {
	t.Helper()
	br := bufio.NewReaderSize(strings.NewReader(input), MaxHeadSize)
	var req Request
	err := ReadRequest(br, &req)
	return &req, err
}

func TestReadRequest_Valid(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		method     string
		target     string
		minor      int
		persistent bool
	}{
		{
			name:       "minimal HTTP/1.1",
			input:      "GET / HTTP/1.1\r\nHost: x\r\n\r\n",
			method:     "GET",
			target:     "/",
			minor:      1,
			persistent: true,
		},
		{
			name:       "HTTP/1.1 close",
			input:      "GET /a HTTP/1.1\r\nConnection: close\r\n\r\n",
			method:     "GET",
			target:     "/a",
			minor:      1,
			persistent: false,
		},
		{
			name:       "HTTP/1.0 default close",
			input:      "HEAD /a HTTP/1.0\r\n\r\n",
			method:     "HEAD",
			target:     "/a",
			minor:      0,
			persistent: false,
		},
		{
			name:       "HTTP/1.0 keep-alive",
			input:      "GET /a HTTP/1.0\r\nconnection: Keep-Alive\r\n\r\n",
			method:     "GET",
			target:     "/a",
			minor:      0,
			persistent: true,
		},
		{
			name:       "connection token list",
			input:      "GET / HTTP/1.1\r\nConnection: upgrade, close\r\n\r\n",
			method:     "GET",
			target:     "/",
			minor:      1,
			persistent: false,
		},
		{
			name:       "bare LF and leading blank line",
			input:      "\r\nGET /x?y=1 HTTP/1.1\nHost: x\n\n",
			method:     "GET",
			target:     "/x?y=1",
			minor:      1,
			persistent: true,
		},
		{
			name:       "unknown method still parses",
			input:      "BREW /pot HTTP/1.1\r\n\r\n",
			method:     "BREW",
			target:     "/pot",
			minor:      1,
			persistent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := readString(t, tt.input)
			if err != nil {
				t.Fatalf("ReadRequest() error = %v", err)
			}
			if req.Method != tt.method || req.Target != tt.target || req.Minor != tt.minor {
				t.Errorf("got %s %s HTTP/1.%d", req.Method, req.Target, req.Minor)
			}
			if req.Persistent() != tt.persistent {
				t.Errorf("Persistent() = %v, want %v", req.Persistent(), tt.persistent)
			}
		})
	}
}

func TestReadRequest_Conditions(t *testing.T) {
	req, err := readString(t, "GET / HTTP/1.1\r\n"+
		"If-None-Match: \"a\"\r\n"+
		"if-none-match: W/\"b\"\r\n"+
		"If-Modified-Since: Mon, 01 Jan 2024 00:00:00 GMT\r\n"+
		"If-Modified-Since: ignored\r\n\r\n")
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	c := req.Conditions
	if !c.HasIfNoneMatch || c.IfNoneMatch != `"a", W/"b"` {
		t.Errorf("IfNoneMatch = %q", c.IfNoneMatch)
	}
	if !c.HasIfModifiedSince || c.IfModifiedSince != "Mon, 01 Jan 2024 00:00:00 GMT" {
		t.Errorf("IfModifiedSince = %q", c.IfModifiedSince)
	}
}

func TestReadRequest_Body(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		hasBody bool
	}{
		{"zero length", "Content-Length: 0", false},
		{"length", "Content-Length: 12", true},
		{"repeated equal length", "Content-Length: 5\r\nContent-Length: 5", true},
		{"chunked", "Transfer-Encoding: chunked", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := readString(t, "GET / HTTP/1.1\r\n"+tt.header+"\r\n\r\n")
			if err != nil {
				t.Fatalf("ReadRequest() error = %v", err)
			}
			if req.HasBody != tt.hasBody {
				t.Errorf("HasBody = %v, want %v", req.HasBody, tt.hasBody)
			}
		})
	}
}

func TestReadRequest_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no spaces", "GET\r\n\r\n"},
		{"missing version", "GET /\r\n\r\n"},
		{"bad version", "GET / HTTP/2.0\r\n\r\n"},
		{"lowercase version", "GET / http/1.1\r\n\r\n"},
		{"bad method token", "G(T / HTTP/1.1\r\n\r\n"},
		{"double space", "GET  / HTTP/1.1\r\n\r\n"},
		{"missing colon", "GET / HTTP/1.1\r\nHost x\r\n\r\n"},
		{"empty header name", "GET / HTTP/1.1\r\n: x\r\n\r\n"},
		{"space before colon", "GET / HTTP/1.1\r\nHost : x\r\n\r\n"},
		{"obs-fold", "GET / HTTP/1.1\r\nX-A: a\r\n b\r\n\r\n"},
		{"invalid content length", "GET / HTTP/1.1\r\nContent-Length: abc\r\n\r\n"},
		{"negative content length", "GET / HTTP/1.1\r\nContent-Length: -1\r\n\r\n"},
		{"signed content length", "GET / HTTP/1.1\r\nContent-Length: +1\r\n\r\n"},
		{"conflicting content length", "GET / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\n"},
		{"stray CR", "GET / HTTP/1.1\r\nX-A: a\rb\r\n\r\n"},
		{"NUL in header", "GET / HTTP/1.1\r\nX-A: a\x00b\r\n\r\n"},
		{"control in target", "GET /a\x01b HTTP/1.1\r\n\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readString(t, tt.input)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ReadRequest() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestReadRequest_TooLarge(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"long target", "GET /" + strings.Repeat("a", MaxHeadSize) + " HTTP/1.1\r\n\r\n"},
		{"many headers", "GET / HTTP/1.1\r\n" + strings.Repeat("X-Pad: "+strings.Repeat("p", 100)+"\r\n", 100) + "\r\n"},
		{"endless blank lines", strings.Repeat("\r\n", MaxHeadSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readString(t, tt.input)
			if !errors.Is(err, ErrHeadTooLarge) {
				t.Errorf("ReadRequest() error = %v, want ErrHeadTooLarge", err)
			}
		})
	}
}

func TestReadRequest_Truncated(t *testing.T) {
	_, err := readString(t, "GET / HTTP/1.1\r\nHost: x\r\n")
	if !errors.Is(err, io.EOF) {
		t.Errorf("ReadRequest() error = %v, want io.EOF", err)
	}
}

func TestReadRequest_ReusesRequest(t *testing.T) {
	br := bufio.NewReaderSize(strings.NewReader(
		"GET /a HTTP/1.1\r\nIf-None-Match: *\r\nConnection: close\r\n\r\n"+
			"GET /b HTTP/1.1\r\n\r\n"), MaxHeadSize)
	var req Request
	if err := ReadRequest(br, &req); err != nil {
		t.Fatalf("first ReadRequest() error = %v", err)
	}
	if err := ReadRequest(br, &req); err != nil {
		t.Fatalf("second ReadRequest() error = %v", err)
	}
	if req.Target != "/b" || req.Close || req.Conditions.HasIfNoneMatch {
		t.Errorf("state leaked between requests: %+v", req)
	}
}

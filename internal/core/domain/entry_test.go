package domain

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestMakeETag(t *testing.T) {
	if got := MakeETag(1234, 1700000000); got != `W/"1234-1700000000"` {
		t.Errorf("MakeETag() = %q", got)
	}
}

func TestOpaqueTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`W/"12-34"`, "12-34"},
		{`"12-34"`, "12-34"},
		{`12-34`, "12-34"},
		{`W/12-34`, "12-34"},
		{`"`, `"`},
		{``, ``},
	}
	for _, tt := range tests {
		if got := OpaqueTag(tt.in); got != tt.want {
			t.Errorf("OpaqueTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewEntry_Buffers(t *testing.T) {
	content := []byte("<h1>hello</h1>")
	mod := time.Date(2024, 5, 6, 7, 8, 9, 987654321, time.UTC)

	e := NewEntry("/index.html", content, mod, MimeType("index.html"), DefaultResponseHeaders())

	if e.Path() != "/index.html" {
		t.Errorf("Path() = %q", e.Path())
	}
	if e.Size() != int64(len(content)) {
		t.Errorf("Size() = %d, want %d", e.Size(), len(content))
	}
	if !bytes.Equal(e.Body(), content) {
		t.Errorf("Body() = %q, want %q", e.Body(), content)
	}
	if !e.LastModified().Equal(mod.Truncate(time.Second)) {
		t.Errorf("LastModified() = %v, want second resolution of %v", e.LastModified(), mod)
	}
	wantTag := MakeETag(int64(len(content)), mod.Unix())
	if e.ETag() != wantTag {
		t.Errorf("ETag() = %q, want %q", e.ETag(), wantTag)
	}

	full := string(e.Full())
	head := string(e.HeadersOnly())
	if !strings.HasPrefix(full, head) {
		t.Fatal("full response must start with the headers-only response")
	}
	if full[len(head):] != string(content) {
		t.Errorf("full body = %q, want %q", full[len(head):], content)
	}
	if !strings.HasSuffix(head, "\r\n\r\n") {
		t.Error("headers-only response must end with an empty line")
	}

	for _, want := range []string{
		"HTTP/1.1 200 OK\r\n",
		"Content-Type: text/html; charset=utf-8\r\n",
		"Content-Length: " + strconv.Itoa(len(content)) + "\r\n",
		"Last-Modified: Mon, 06 May 2024 07:08:09 GMT\r\n",
		"ETag: " + wantTag + "\r\n",
		"Cache-Control: public, max-age=3600\r\n",
		"X-Content-Type-Options: nosniff\r\n",
		"X-Frame-Options: DENY\r\n",
		"Content-Security-Policy: default-src 'self'\r\n",
		"Connection: keep-alive\r\n",
	} {
		if !strings.Contains(head, want) {
			t.Errorf("headers missing %q in:\n%s", want, head)
		}
	}

	nm := string(e.NotModified())
	if !strings.HasPrefix(nm, "HTTP/1.1 304 Not Modified\r\n") {
		t.Errorf("304 status line wrong: %q", nm)
	}
	if !strings.Contains(nm, "ETag: "+wantTag+"\r\n") {
		t.Error("304 must carry the ETag")
	}
	if !strings.HasSuffix(nm, "\r\n\r\n") {
		t.Error("304 must have an empty body")
	}
	if strings.Contains(nm, "Content-Length") {
		t.Error("304 must not declare a Content-Length")
	}
}

func TestNewEntry_OptionalHeadersOmitted(t *testing.T) {
	e := NewEntry("/a.txt", []byte("a"), time.Unix(10, 0), "", ResponseHeaders{})
	head := string(e.HeadersOnly())

	if strings.Contains(head, "X-Frame-Options") || strings.Contains(head, "Content-Security-Policy") {
		t.Errorf("optional headers should be omitted:\n%s", head)
	}
	if !strings.Contains(head, "Cache-Control: "+DefaultCacheControl) {
		t.Error("empty CacheControl should fall back to the default")
	}
	if !strings.Contains(head, "Content-Type: "+DefaultMimeType) {
		t.Error("empty content type should fall back to octet-stream")
	}
}

func TestNewEntry_EmptyFileAndPreEpoch(t *testing.T) {
	e := NewEntry("/empty", nil, time.Unix(-50, 0), "", DefaultResponseHeaders())

	if e.Size() != 0 || len(e.Body()) != 0 {
		t.Errorf("empty file should have zero body, got %d", e.Size())
	}
	if e.ETag() != `W/"0-0"` {
		t.Errorf("pre-epoch mtime should clamp to 0, got %q", e.ETag())
	}
	if !strings.Contains(string(e.Full()), "Content-Length: 0\r\n") {
		t.Error("empty file must declare Content-Length: 0")
	}
}

func TestNewEntry_ClosingVariants(t *testing.T) {
	e := NewEntry("/a.txt", []byte("hello"), time.Unix(1700000000, 0), "text/plain", DefaultResponseHeaders())

	keep := string(e.HeadersOnly())
	closing := string(e.ClosingHead())
	if !strings.HasSuffix(closing, "Connection: close\r\n\r\n") {
		t.Errorf("closing head ends with %q", closing[len(closing)-30:])
	}
	if strings.Contains(closing, "keep-alive") {
		t.Error("closing head must not advertise keep-alive")
	}
	if strings.TrimSuffix(keep, "Connection: keep-alive\r\n\r\n") != strings.TrimSuffix(closing, "Connection: close\r\n\r\n") {
		t.Error("keep-alive and closing heads differ beyond the Connection header")
	}

	nm := string(e.ClosingNotModified())
	if !strings.HasPrefix(nm, "HTTP/1.1 304 Not Modified\r\n") || !strings.HasSuffix(nm, "Connection: close\r\n\r\n") {
		t.Errorf("closing 304 = %q", nm)
	}
	if !strings.HasSuffix(string(e.NotModified()), "Connection: keep-alive\r\n\r\n") {
		t.Error("304 must advertise keep-alive")
	}
}

func TestEntry_SlicesAreCapped(t *testing.T) {
	e := NewEntry("/x", []byte("abc"), time.Unix(1, 0), "", DefaultResponseHeaders())

	head := e.HeadersOnly()
	_ = append(head, 'Z')
	if !bytes.Equal(e.Body(), []byte("abc")) {
		t.Error("appending to HeadersOnly() must not overwrite the body")
	}
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"index.html", "text/html; charset=utf-8"},
		{"INDEX.HTM", "text/html; charset=utf-8"},
		{"app.js", "text/javascript; charset=utf-8"},
		{"style.css", "text/css; charset=utf-8"},
		{"data.json", "application/json; charset=utf-8"},
		{"logo.PNG", "image/png"},
		{"photo.jpeg", "image/jpeg"},
		{"font.woff2", "font/woff2"},
		{"module.wasm", "application/wasm"},
		{"archive.tar.gz", "application/gzip"},
		{"README", DefaultMimeType},
		{"weird.", DefaultMimeType},
		{"binary.xyz", DefaultMimeType},
		{"dir.d/noext", DefaultMimeType},
	}
	for _, tt := range tests {
		if got := MimeType(tt.name); got != tt.want {
			t.Errorf("MimeType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestState(t *testing.T) {
	if StateServing.String() != "serving" || StateDraining.String() != "draining" {
		t.Error("unexpected state names")
	}
	if State(42).String() != "unknown" {
		t.Error("unknown states should render as unknown")
	}
	if !StateServing.Ready() || StateDraining.Ready() || StateStarting.Ready() {
		t.Error("only serving is ready")
	}
	if !StateStarting.CanTransition(StateServing) || !StateServing.CanTransition(StateDraining) {
		t.Error("forward transitions should be allowed")
	}
	if StateDraining.CanTransition(StateServing) || StateStopped.CanTransition(StateStopped) {
		t.Error("backward or self transitions should be refused")
	}
	if !StateStarting.CanTransition(StateStopped) {
		t.Error("a failed startup may stop directly")
	}
}

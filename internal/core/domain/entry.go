package domain

import (
	"strconv"
	"strings"
	"time"
)

// HTTPTimeFormat is the IMF-fixdate layout used for Last-Modified.
const HTTPTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Response header defaults baked into every cached response.
const (
	DefaultCacheControl          = "public, max-age=3600"
	DefaultFrameOptions          = "DENY"
	DefaultContentSecurityPolicy = "default-src 'self'"
)

// ResponseHeaders holds the static headers bundled into cached responses.
// Empty optional values are omitted; X-Content-Type-Options is always sent.
type ResponseHeaders struct {
	CacheControl          string
	FrameOptions          string
	ContentSecurityPolicy string
}

// DefaultResponseHeaders returns the default header bundle.
func DefaultResponseHeaders() ResponseHeaders {
	return ResponseHeaders{
		CacheControl:          DefaultCacheControl,
		FrameOptions:          DefaultFrameOptions,
		ContentSecurityPolicy: DefaultContentSecurityPolicy,
	}
}

func (h ResponseHeaders) cacheControl() string {
	if h.CacheControl == "" {
		return DefaultCacheControl
	}
	return h.CacheControl
}

// appendSecurity appends the security headers in a fixed order.
func (h ResponseHeaders) appendSecurity(b []byte) []byte {
	b = append(b, "X-Content-Type-Options: nosniff\r\n"...)
	if h.FrameOptions != "" {
		b = appendHeader(b, "X-Frame-Options", h.FrameOptions)
	}
	if h.ContentSecurityPolicy != "" {
		b = appendHeader(b, "Content-Security-Policy", h.ContentSecurityPolicy)
	}
	return b
}

// Entry is an immutable cached file with its precomputed responses.
//
// An Entry is created once by NewEntry and shared read-only by every
// connection for the lifetime of the process. The byte slices returned by
// its accessors must not be modified.
type Entry struct {
	path         string
	contentType  string
	etag         string
	lastModified time.Time

	full        []byte // keep-alive headers + body
	headerLen   int
	closeHead   []byte // the same headers ending in Connection: close
	notModified []byte
	nmClose     []byte
}

const (
	connKeepAlive = "Connection: keep-alive\r\n\r\n"
	connClose     = "Connection: close\r\n\r\n"
)

// withConnection returns head terminated by the connection header line.
func withConnection(head []byte, line string) []byte {
	out := make([]byte, 0, len(head)+len(line))
	out = append(out, head...)
	return append(out, line...)
}

// NewEntry builds an entry for content served under urlPath.
//
// modTime is truncated to second resolution; the ETag is derived from the
// content length and that second so it is a pure function of (size, mtime).
func NewEntry(urlPath string, content []byte, modTime time.Time, contentType string, hdr ResponseHeaders) *Entry {
	lastModified := modTime.UTC().Truncate(time.Second)
	mtime := lastModified.Unix()
	if mtime < 0 {
		mtime = 0
		lastModified = time.Unix(0, 0).UTC()
	}
	if contentType == "" {
		contentType = DefaultMimeType
	}

	etag := MakeETag(int64(len(content)), mtime)
	lm := lastModified.Format(HTTPTimeFormat)

	head := make([]byte, 0, 256+len(hdr.ContentSecurityPolicy))
	head = append(head, "HTTP/1.1 200 OK\r\n"...)
	head = appendHeader(head, "Content-Type", contentType)
	head = appendHeader(head, "Content-Length", strconv.Itoa(len(content)))
	head = appendHeader(head, "Last-Modified", lm)
	head = appendHeader(head, "ETag", etag)
	head = appendHeader(head, "Cache-Control", hdr.cacheControl())
	head = hdr.appendSecurity(head)

	full := make([]byte, 0, len(head)+len(connKeepAlive)+len(content))
	full = append(full, head...)
	full = append(full, connKeepAlive...)
	headerLen := len(full)
	full = append(full, content...)

	nm := make([]byte, 0, 160)
	nm = append(nm, "HTTP/1.1 304 Not Modified\r\n"...)
	nm = appendHeader(nm, "ETag", etag)
	nm = appendHeader(nm, "Last-Modified", lm)
	nm = appendHeader(nm, "Cache-Control", hdr.cacheControl())

	return &Entry{
		path:         urlPath,
		contentType:  contentType,
		etag:         etag,
		lastModified: lastModified,
		full:         full,
		headerLen:    headerLen,
		closeHead:    withConnection(head, connClose),
		notModified:  withConnection(nm, connKeepAlive),
		nmClose:      withConnection(nm, connClose),
	}
}

// MakeETag formats the weak validator for a file of size bytes modified at
// mtime (Unix seconds).
func MakeETag(size, mtime int64) string {
	return `W/"` + strconv.FormatInt(size, 10) + "-" + strconv.FormatInt(mtime, 10) + `"`
}

// OpaqueTag strips the weak prefix and surrounding quotes from an entity tag.
func OpaqueTag(tag string) string {
	tag = strings.TrimPrefix(tag, "W/")
	if n := len(tag); n >= 2 && tag[0] == '"' && tag[n-1] == '"' {
		tag = tag[1 : n-1]
	}
	return tag
}

// Path returns the canonical URL path the entry was built for.
func (e *Entry) Path() string { return e.path }

// ContentType returns the served Content-Type.
func (e *Entry) ContentType() string { return e.contentType }

// ETag returns the weak entity tag, including the W/ prefix and quotes.
func (e *Entry) ETag() string { return e.etag }

// LastModified returns the modification time at second resolution (UTC).
func (e *Entry) LastModified() time.Time { return e.lastModified }

// Size returns the content length in bytes.
func (e *Entry) Size() int64 { return int64(len(e.full) - e.headerLen) }

// Body returns the content bytes.
func (e *Entry) Body() []byte { return e.full[e.headerLen:len(e.full):len(e.full)] }

// Full returns the complete 200 response (headers and body).
func (e *Entry) Full() []byte { return e.full[:len(e.full):len(e.full)] }

// HeadersOnly returns the 200 response without its body, for HEAD.
func (e *Entry) HeadersOnly() []byte { return e.full[:e.headerLen:e.headerLen] }

// NotModified returns the 304 response.
func (e *Entry) NotModified() []byte { return e.notModified[:len(e.notModified):len(e.notModified)] }

// ClosingHead returns the 200 headers announcing Connection: close. It is
// sent alone for HEAD and followed by Body for GET.
func (e *Entry) ClosingHead() []byte { return e.closeHead[:len(e.closeHead):len(e.closeHead)] }

// ClosingNotModified returns the 304 response announcing Connection: close.
func (e *Entry) ClosingNotModified() []byte { return e.nmClose[:len(e.nmClose):len(e.nmClose)] }

func appendHeader(b []byte, name, value string) []byte {
	b = append(b, name...)
	b = append(b, ": "...)
	b = append(b, value...)
	return append(b, "\r\n"...)
}

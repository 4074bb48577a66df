package memory

import (
	"strings"
)

// MaxTargetLength bounds the request-target accepted by Resolve. It matches
// the request head limit of the connection handler.
const MaxTargetLength = 8192

// Resolve turns a raw request-target into the key it is indexed under.
//
// The target is reduced to its path (absolute-form authority, query and
// fragment are dropped), percent-decoded once, and logically cleaned by
// Clean. Nothing here touches the filesystem. ok is false for targets that
// cannot name an entry: over-long, invalid escapes, NUL bytes, or paths
// whose dot-segments climb above the root.
func Resolve(target string) (key string, ok bool) {
	if len(target) > MaxTargetLength {
		return "", false
	}
	target = stripAuthority(target)
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if isClean(target) {
		return target, true
	}
	decoded, ok := percentDecode(target)
	if !ok || strings.IndexByte(decoded, 0) >= 0 {
		return "", false
	}
	return Clean(decoded)
}

// Clean collapses a decoded path into canonical form: rooted, single
// slashes, no "." or ".." segments. A backslash is treated as a separator.
// A trailing slash (or a trailing dot-segment) is kept as a single "/"
// marking a directory-style request; the root is always "/".
func Clean(p string) (string, bool) {
	if isClean(p) {
		return p, true
	}
	if strings.IndexByte(p, 0) >= 0 {
		return "", false
	}
	p = strings.ReplaceAll(p, `\`, "/")

	parts := strings.Split(p, "/")
	segs := make([]string, 0, len(parts))
	for _, seg := range parts {
		switch seg {
		case "", ".":
		case "..":
			if len(segs) == 0 {
				return "", false
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, seg)
		}
	}
	if len(segs) == 0 {
		return "/", true
	}

	var b strings.Builder
	b.Grow(len(p) + 1)
	for _, seg := range segs {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	switch parts[len(parts)-1] {
	case "", ".", "..":
		b.WriteByte('/')
	}
	return b.String(), true
}

// isClean reports whether p is already canonical and needs no decoding,
// which is the common case for well-behaved clients.
func isClean(p string) bool {
	if len(p) == 0 || p[0] != '/' {
		return false
	}
	if strings.ContainsAny(p, "%\\\x00") {
		return false
	}
	return !strings.Contains(p, "//") && !strings.Contains(p, "/./") &&
		!strings.Contains(p, "/../") && !strings.HasSuffix(p, "/.") &&
		!strings.HasSuffix(p, "/..")
}

// stripAuthority reduces an absolute-form target to its path.
func stripAuthority(target string) string {
	var rest string
	switch {
	case hasPrefixFold(target, "http://"):
		rest = target[len("http://"):]
	case hasPrefixFold(target, "https://"):
		rest = target[len("https://"):]
	default:
		return target
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		if rest[i] == '/' {
			return rest[i:]
		}
		return "/" + rest[i:]
	}
	return "/"
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// percentDecode decodes %XX escapes once. '+' is left alone since it has
// no special meaning in a path.
func percentDecode(s string) (string, bool) {
	n := strings.Count(s, "%")
	if n == 0 {
		return s, true
	}
	out := make([]byte, 0, len(s)-2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			out = append(out, c)
			continue
		}
		if i+2 >= len(s) {
			return "", false
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", false
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return string(out), true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

package logger

import (
	"log/slog"
	"strings"
)

// redactedValue replaces masked data.
const redactedValue = "***REDACTED***"

// Substrings of attribute keys whose values are never logged.
var secretKeyParts = []string{
	"password", "secret", "token", "api_key", "apikey",
	"credential", "authorization", "cookie",
}

// Credential schemes kept visible in front of a shortened value.
var credentialSchemes = []string{"Bearer ", "Basic "}

// Attribute keys that hold request targets. Clients put credentials in
// query strings, so only the path is logged.
var targetKeys = map[string]bool{"target": true, "url": true, "uri": true}

// redactSensitive is the ReplaceAttr hook of every handler built by New.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		return slog.String(a.Key, redactString(a.Key, a.Value.String()))
	}
	return a
}

func redactString(key, val string) string {
	if scheme, ok := credentialScheme(val); ok {
		return shorten(val, scheme)
	}
	lower := strings.ToLower(key)
	if targetKeys[lower] {
		return RedactTarget(val)
	}
	if val != "" && secretKey(lower) {
		return redactedValue
	}
	return val
}

func secretKey(lowerKey string) bool {
	for _, part := range secretKeyParts {
		if strings.Contains(lowerKey, part) {
			return true
		}
	}
	return false
}

func credentialScheme(val string) (string, bool) {
	for _, s := range credentialSchemes {
		if strings.HasPrefix(val, s) {
			return s, true
		}
	}
	return "", false
}

// shorten keeps the scheme and three characters from each end of the
// credential, enough to tell two credentials apart.
func shorten(val, scheme string) string {
	body := val[len(scheme):]
	if len(body) <= 6 {
		return scheme + "***"
	}
	return scheme + body[:3] + "..." + body[len(body)-3:]
}

// RedactTarget masks the query string and any userinfo of a request
// target. The path and fragment are kept.
func RedactTarget(target string) string {
	if i := strings.Index(target, "://"); i >= 0 {
		rest := target[i+3:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		if at := strings.LastIndexByte(rest[:end], '@'); at >= 0 {
			target = target[:i+3] + redactedValue + rest[at:]
		}
	}
	q := strings.IndexByte(target, '?')
	if q < 0 {
		return target
	}
	frag := ""
	if h := strings.IndexByte(target[q:], '#'); h >= 0 {
		frag = target[q+h:]
	}
	return target[:q+1] + redactedValue + frag
}

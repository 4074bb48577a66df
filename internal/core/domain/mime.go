package domain

import (
	"path"
	"strings"
)

// DefaultMimeType is served for files whose extension is not in the table.
const DefaultMimeType = "application/octet-stream"

// mimeTypes maps lower-cased file extensions (without the dot) to the
// Content-Type served for them. Text types carry an explicit charset.
var mimeTypes = map[string]string{
	"html":  "text/html; charset=utf-8",
	"htm":   "text/html; charset=utf-8",
	"css":   "text/css; charset=utf-8",
	"js":    "text/javascript; charset=utf-8",
	"mjs":   "text/javascript; charset=utf-8",
	"json":  "application/json; charset=utf-8",
	"map":   "application/json; charset=utf-8",
	"xml":   "application/xml; charset=utf-8",
	"txt":   "text/plain; charset=utf-8",
	"md":    "text/markdown; charset=utf-8",
	"csv":   "text/csv; charset=utf-8",
	"atom":  "application/atom+xml",
	"rss":   "application/rss+xml",
	"ico":   "image/x-icon",
	"png":   "image/png",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"gif":   "image/gif",
	"svg":   "image/svg+xml",
	"webp":  "image/webp",
	"avif":  "image/avif",
	"bmp":   "image/bmp",
	"pdf":   "application/pdf",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"ttf":   "font/ttf",
	"otf":   "font/otf",
	"eot":   "application/vnd.ms-fontobject",
	"wasm":  "application/wasm",
	"mp3":   "audio/mpeg",
	"m4a":   "audio/x-m4a",
	"mp4":   "video/mp4",
	"webm":  "video/webm",
	"zip":   "application/zip",
	"gz":    "application/gzip",
	"7z":    "application/x-7z-compressed",
}

// MimeType returns the Content-Type for a file name based on its extension.
// Matching is case-insensitive; unknown or missing extensions fall back to
// DefaultMimeType.
func MimeType(name string) string {
	ext := path.Ext(name)
	if len(ext) < 2 {
		return DefaultMimeType
	}
	if t, ok := mimeTypes[strings.ToLower(ext[1:])]; ok {
		return t
	}
	return DefaultMimeType
}

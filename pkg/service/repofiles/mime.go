package repofiles

import "strings"

// DefaultMIMEType is returned for files whose extension is unknown or
// absent.
const DefaultMIMEType = "application/octet-stream"

var mimeTypes = map[string]string{
	"c":    "text/x-c",
	"cpp":  "text/x-c++",
	"css":  "text/css",
	"go":   "text/x-go",
	"h":    "text/x-c",
	"hpp":  "text/x-c++",
	"html": "text/html",
	"java": "text/x-java",
	"js":   "text/javascript",
	"json": "application/json",
	"jsx":  "text/javascript",
	"md":   "text/markdown",
	"py":   "text/x-python",
	"rb":   "text/x-ruby",
	"rs":   "text/x-rust",
	"sh":   "text/x-shellscript",
	"sql":  "text/x-sql",
	"svg":  "image/svg+xml",
	"toml": "application/toml",
	"ts":   "text/typescript",
	"tsx":  "text/typescript",
	"txt":  "text/plain",
	"xml":  "application/xml",
	"yaml": "application/yaml",
	"yml":  "application/yaml",
}

// MIMETypeOf infers a media type from the extension after the last dot of
// name, case-insensitively. Pure lookup, no filesystem involved.
func MIMETypeOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return DefaultMIMEType
	}

	if mimeType, ok := mimeTypes[strings.ToLower(name[idx+1:])]; ok {
		return mimeType
	}

	return DefaultMIMEType
}

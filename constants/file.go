package constants

import "strings"

// File formats accepted by the diagnosis pipeline.
const (
	PDF  = "PDF"
	TEXT = "TEXT"
)

// AllowedExtensions holds the file extensions accepted at the upload boundary.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
	"txt": {},
	"csv": {},
	"md":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a (possibly dotted) extension to a pipeline format.
// Returns "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "txt", "csv", "md", "text":
		return TEXT
	default:
		return ""
	}
}

// IsPDFMediaType reports whether a declared media type identifies a PDF.
func IsPDFMediaType(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	return mt == "application/pdf" || strings.HasSuffix(mt, "+pdf")
}

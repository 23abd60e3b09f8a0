package inference

import (
	"encoding/base64"
	"strings"
)

// pdfDataURLPrefix is the canonical prefix every inline payload must carry.
const pdfDataURLPrefix = "data:application/pdf;base64,"

// chat-completions wire shapes. Content is a list of typed parts; the
// service may answer with either a plain string or a part list (see
// normalize.go).
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Plugins  []plugin  `json:"plugins,omitempty"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// plugin selects the file-parser extraction engine for document submissions.
type plugin struct {
	ID  string    `json:"id"`
	PDF pdfPlugin `json:"pdf"`
}

type pdfPlugin struct {
	Engine string `json:"engine"`
}

func textPart(text string) contentPart {
	return contentPart{Type: "text", Text: text}
}

func fileDataPart(filename, data string) contentPart {
	return contentPart{Type: "file", File: &filePart{Filename: filename, FileData: data}}
}

// EncodeDocument base64-encodes raw document bytes for inline submission.
func EncodeDocument(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// ensureDataURL prepends the canonical data-URL prefix to a bare base64
// payload. Already-prefixed payloads pass through untouched.
func ensureDataURL(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		return payload
	}
	return pdfDataURLPrefix + payload
}

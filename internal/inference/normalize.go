package inference

import (
	"encoding/json"
	"strings"
)

// The service answers with message content that is either a plain string or
// a list of heterogeneous segments. normalizeContent models that as a closed
// union: string-valued and {text: string}-shaped segments are concatenated in
// order, anything else is discarded.
func normalizeContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var segments []json.RawMessage
	if err := json.Unmarshal(raw, &segments); err != nil {
		return ""
	}

	var b strings.Builder
	for _, seg := range segments {
		var str string
		if err := json.Unmarshal(seg, &str); err == nil {
			b.WriteString(str)
			continue
		}
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(seg, &obj); err == nil && obj.Text != "" {
			b.WriteString(obj.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

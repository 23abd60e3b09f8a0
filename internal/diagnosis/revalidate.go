package diagnosis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Malnati/wa-fin-ctrl-sub000/internal/inference"
)

// verdictSchema constrains the structured self-check the revalidation pass
// asks the inference service for.
var verdictSchema = jsonschema.MustCompileString("revalidation.json", `{
	"type": "object",
	"properties": {
		"confirmed": {"type": "boolean"},
		"diagnosis": {"type": "string"}
	},
	"required": ["confirmed"],
	"additionalProperties": true
}`)

type revalidationVerdict struct {
	Confirmed bool   `json:"confirmed"`
	Diagnosis string `json:"diagnosis"`
}

// Revalidate resubmits the document together with the just-produced
// diagnosis and asks the service to self-correct. On any failure of this
// optional pass (transport, parse, schema) the prior diagnosis is kept; it
// must never abort the pipeline.
func (r *Router) Revalidate(ctx context.Context, encodedDoc, filename, prior string) string {
	answer, err := r.client.SubmitDocumentInline(ctx, encodedDoc, inference.Options{
		Prompt:   r.prompts.Revalidate,
		Filename: filename,
		Context:  prior,
	})
	if err != nil {
		r.logger.Warn("diagnosis.revalidate.failed", "error", err)
		return prior
	}

	verdict, ok := r.parseVerdict(answer)
	if !ok {
		return prior
	}
	if !verdict.Confirmed && strings.TrimSpace(verdict.Diagnosis) != "" {
		r.logger.Info("diagnosis.revalidate.corrected")
		return verdict.Diagnosis
	}
	return prior
}

func (r *Router) parseVerdict(answer string) (revalidationVerdict, bool) {
	raw := extractJSONObject(answer)
	if raw == "" {
		r.logger.Warn("diagnosis.revalidate.no_json")
		return revalidationVerdict{}, false
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		r.logger.Warn("diagnosis.revalidate.parse_error", "error", err)
		return revalidationVerdict{}, false
	}
	if err := verdictSchema.Validate(decoded); err != nil {
		r.logger.Warn("diagnosis.revalidate.schema_error", "error", err)
		return revalidationVerdict{}, false
	}

	var verdict revalidationVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		r.logger.Warn("diagnosis.revalidate.decode_error", "error", err)
		return revalidationVerdict{}, false
	}
	return verdict, true
}

// extractJSONObject pulls the first balanced-looking JSON object out of an
// answer that may be wrapped in prose or markdown code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

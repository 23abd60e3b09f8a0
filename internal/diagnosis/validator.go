package diagnosis

import (
	"regexp"
	"strings"
)

// Verdict is the result of validating a diagnosis candidate, with the
// evidence categories that were checked. Computed fresh per candidate, never
// persisted.
type Verdict struct {
	Accepted      bool
	GenericPhrase bool // candidate matches known boilerplate phrasing
	HasCitation   bool // quoted span >= 10 chars or a clinical-token pattern
	HasOpinion    bool // at least one qualitative/opinion marker word
}

// genericPhrases are templated answers that carry no document-specific
// content. A match rejects the candidate regardless of anything else.
var genericPhrases = []string{
	"document was processed successfully",
	"file was received and analyzed",
	"i am unable to provide a diagnosis",
	"i cannot analyze this document",
	"unable to extract any information",
	"as an ai language model",
	"please provide the document",
	"no document was provided",
}

var (
	// A quoted span of at least 10 characters counts as citing the source.
	reQuotedSpan = regexp.MustCompile(`["“][^"”]{10,}["”]`)

	// Clinical abbreviations and measured values with units.
	reClinicalToken = regexp.MustCompile(`(?i)\b(hemoglobin|hematocrit|leukocytes|platelets|glucose|glycemia|creatinine|urea|cholesterol|hdl|ldl|vldl|triglycerides|tsh|t3|t4|alt|tgp|ast|tgo|ggt|crp|hba1c|ferritin|vitamin\s?[bd]\d*)\b|\d+(?:[.,]\d+)?\s?(?:mg/dl|g/dl|mmol/l|u/l|ui/l|ng/ml|pg/ml|mcg|µg|mil/mm3|/mm3|%)`)

	// Qualitative opinion language expected from a real assessment.
	reOpinionMarker = regexp.MustCompile(`(?i)\b(suggest|suggests|suggestive|indicates|indicative|consistent with|compatible with|likely|probable|appears|elevated|increased|reduced|decreased|abnormal|normal|borderline|within (?:the )?reference)\b`)
)

// Validate rejects generic/templated output and output that neither cites
// the document nor expresses a qualitative opinion. Accept only when no
// rejection condition fires.
func Validate(candidate string) Verdict {
	v := Verdict{}
	lower := strings.ToLower(candidate)

	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			v.GenericPhrase = true
			break
		}
	}
	v.HasCitation = reQuotedSpan.MatchString(candidate) || reClinicalToken.MatchString(candidate)
	v.HasOpinion = reOpinionMarker.MatchString(candidate)

	v.Accepted = !v.GenericPhrase && v.HasCitation && v.HasOpinion
	return v
}

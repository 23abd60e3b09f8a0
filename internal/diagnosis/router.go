// Package diagnosis orchestrates the end-to-end decision for one document:
// choose text-path or document-path inference, validate the answer, and
// escalate to the document path at most once.
package diagnosis

import (
	"context"
	"log/slog"

	"github.com/Malnati/wa-fin-ctrl-sub000/constants"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/inference"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/quality"
)

// Inferencer is the slice of the inference client the router depends on.
type Inferencer interface {
	SubmitText(ctx context.Context, text string, opts inference.Options) (string, error)
	SubmitDocumentInline(ctx context.Context, encoded string, opts inference.Options) (string, error)
}

// Candidate is a diagnosis produced by one inference call. Attempt is 0 for
// the routed call and 1 for the single allowed escalation.
type Candidate struct {
	Text    string
	Path    constants.RoutePath
	Attempt int
	Verdict Verdict
}

// Prompts carries the instruction text for each call kind. The wording is
// opaque to the routing logic.
type Prompts struct {
	Text       string
	Document   string
	Revalidate string
}

// DefaultPrompts returns the production instruction set.
func DefaultPrompts() Prompts {
	return Prompts{
		Text: "You are reviewing the extracted text of a medical exam. " +
			"Write a concise clinical assessment: cite the concrete values or findings " +
			"you rely on and state what they suggest about the patient's condition.",
		Document: "You are reviewing an uploaded medical exam document. " +
			"Analyze its full content and write a concise clinical assessment: cite the " +
			"concrete values or findings you rely on and state what they suggest.",
		Revalidate: "Re-read the attached document and cross-check the previous diagnosis " +
			"included below. Respond ONLY with JSON: " +
			`{"confirmed": <bool>, "diagnosis": "<corrected diagnosis, or the confirmed one>"}.`,
	}
}

// Router runs the routing/validation/escalation state machine. It holds only
// read-only configuration; concurrent documents share nothing mutable.
type Router struct {
	client     Inferencer
	thresholds quality.Thresholds
	prompts    Prompts
	logger     *slog.Logger
}

func NewRouter(client Inferencer, thresholds quality.Thresholds, prompts Prompts, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if prompts == (Prompts{}) {
		prompts = DefaultPrompts()
	}
	if thresholds == (quality.Thresholds{}) {
		thresholds = quality.DefaultThresholds()
	}
	return &Router{client: client, thresholds: thresholds, prompts: prompts, logger: logger}
}

// Handle runs the generic gated flow for any document: text path when the
// extracted text passes the quality gate, document path otherwise. A
// rejected or failed text-path call escalates to the document path exactly
// once, and the escalated result is accepted unconditionally, capping the
// worst case at two inference calls.
func (r *Router) Handle(ctx context.Context, encodedDoc, filename, extractedText string) (Candidate, error) {
	if !quality.IsSufficient(extractedText, r.thresholds) {
		r.logger.Info("diagnosis.route", "path", constants.DocumentPath, "reason", "quality_gate")
		return r.DiagnoseDocument(ctx, encodedDoc, filename)
	}

	r.logger.Info("diagnosis.route", "path", constants.TextPath)
	text, err := r.client.SubmitText(ctx, extractedText, inference.Options{
		Prompt:   r.prompts.Text,
		Filename: filename,
	})
	if err == nil {
		verdict := Validate(text)
		if verdict.Accepted {
			return Candidate{Text: text, Path: constants.TextPath, Attempt: 0, Verdict: verdict}, nil
		}
		r.logger.Warn("diagnosis.validation.rejected",
			"path", constants.TextPath,
			"generic_phrase", verdict.GenericPhrase,
			"has_citation", verdict.HasCitation,
			"has_opinion", verdict.HasOpinion)
	} else {
		r.logger.Warn("diagnosis.text_path.failed", "error", err)
	}

	// Single escalation: re-run on the document path and accept the result
	// without another validation loop.
	cand, err := r.diagnoseDocument(ctx, encodedDoc, filename, 1)
	if err != nil {
		return Candidate{}, err
	}
	r.logger.Info("diagnosis.escalated", "attempt", cand.Attempt)
	return cand, nil
}

// DiagnoseDocument runs the document path directly (the PDF entry mode).
func (r *Router) DiagnoseDocument(ctx context.Context, encodedDoc, filename string) (Candidate, error) {
	return r.diagnoseDocument(ctx, encodedDoc, filename, 0)
}

func (r *Router) diagnoseDocument(ctx context.Context, encodedDoc, filename string, attempt int) (Candidate, error) {
	text, err := r.client.SubmitDocumentInline(ctx, encodedDoc, inference.Options{
		Prompt:   r.prompts.Document,
		Filename: filename,
	})
	if err != nil {
		return Candidate{}, err
	}

	verdict := Validate(text)
	if attempt == 0 && !verdict.Accepted {
		// No alternate path is left for a first-try document candidate;
		// record the verdict and keep the answer.
		r.logger.Warn("diagnosis.validation.rejected",
			"path", constants.DocumentPath,
			"generic_phrase", verdict.GenericPhrase,
			"has_citation", verdict.HasCitation,
			"has_opinion", verdict.HasOpinion)
	}
	return Candidate{Text: text, Path: constants.DocumentPath, Attempt: attempt, Verdict: verdict}, nil
}

package diagnosis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Malnati/wa-fin-ctrl-sub000/constants"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/inference"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/quality"
)

const (
	acceptableAnswer = `Glucose of 182 mg/dL is elevated and indicates poor glycemic control.`
	genericAnswer    = `The document was processed successfully.`
)

// richText passes the default quality gate: long and numeric-dense.
var richText = strings.Repeat("Hemoglobin 13.5 g/dL\nGlucose 92 mg/dL\n", 30)

type fakeInferencer struct {
	textAnswer string
	textErr    error
	docAnswer  string
	docErr     error

	textCalls int
	docCalls  int
	lastOpts  inference.Options
}

func (f *fakeInferencer) SubmitText(_ context.Context, _ string, opts inference.Options) (string, error) {
	f.textCalls++
	f.lastOpts = opts
	return f.textAnswer, f.textErr
}

func (f *fakeInferencer) SubmitDocumentInline(_ context.Context, _ string, opts inference.Options) (string, error) {
	f.docCalls++
	f.lastOpts = opts
	return f.docAnswer, f.docErr
}

func newTestRouter(f *fakeInferencer) *Router {
	return NewRouter(f, quality.DefaultThresholds(), Prompts{}, nil)
}

func TestHandleTextPathAcceptedWithoutEscalation(t *testing.T) {
	f := &fakeInferencer{textAnswer: acceptableAnswer}
	r := newTestRouter(f)

	cand, err := r.Handle(context.Background(), "ZG9j", "exam.txt", richText)
	require.NoError(t, err)

	assert.Equal(t, constants.TextPath, cand.Path)
	assert.Equal(t, 0, cand.Attempt)
	assert.Equal(t, 1, f.textCalls)
	assert.Zero(t, f.docCalls)
}

func TestHandleRejectedTextPathEscalatesExactlyOnce(t *testing.T) {
	f := &fakeInferencer{textAnswer: genericAnswer, docAnswer: genericAnswer}
	r := newTestRouter(f)

	cand, err := r.Handle(context.Background(), "ZG9j", "exam.txt", richText)
	require.NoError(t, err)

	// The escalated result is accepted unconditionally, even though it would
	// fail validation, and the attempt counter never exceeds 1.
	assert.Equal(t, constants.DocumentPath, cand.Path)
	assert.Equal(t, 1, cand.Attempt)
	assert.Equal(t, genericAnswer, cand.Text)
	assert.Equal(t, 1, f.textCalls)
	assert.Equal(t, 1, f.docCalls)
}

func TestHandleTextPathErrorEscalates(t *testing.T) {
	f := &fakeInferencer{textErr: errors.New("timeout"), docAnswer: acceptableAnswer}
	r := newTestRouter(f)

	cand, err := r.Handle(context.Background(), "ZG9j", "exam.txt", richText)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentPath, cand.Path)
	assert.Equal(t, 1, cand.Attempt)
}

func TestHandleInsufficientTextGoesStraightToDocumentPath(t *testing.T) {
	f := &fakeInferencer{docAnswer: acceptableAnswer}
	r := newTestRouter(f)

	cand, err := r.Handle(context.Background(), "ZG9j", "exam.pdf", "too short")
	require.NoError(t, err)

	assert.Equal(t, constants.DocumentPath, cand.Path)
	assert.Equal(t, 0, cand.Attempt)
	assert.Zero(t, f.textCalls)
}

func TestHandleEscalationFailureSurfaces(t *testing.T) {
	f := &fakeInferencer{textAnswer: genericAnswer, docErr: errors.New("upstream 500")}
	r := newTestRouter(f)

	_, err := r.Handle(context.Background(), "ZG9j", "exam.txt", richText)
	require.Error(t, err)
}

func TestDiagnoseDocumentKeepsRejectedFirstTryCandidate(t *testing.T) {
	f := &fakeInferencer{docAnswer: genericAnswer}
	r := newTestRouter(f)

	cand, err := r.DiagnoseDocument(context.Background(), "ZG9j", "exam.pdf")
	require.NoError(t, err)
	assert.Equal(t, genericAnswer, cand.Text)
	assert.Equal(t, 1, f.docCalls, "no retry loop on the document path")
	assert.False(t, cand.Verdict.Accepted)
}

func TestRevalidateKeepsPriorOnFailure(t *testing.T) {
	f := &fakeInferencer{docErr: errors.New("boom")}
	r := newTestRouter(f)

	got := r.Revalidate(context.Background(), "ZG9j", "exam.pdf", "prior diagnosis")
	assert.Equal(t, "prior diagnosis", got)
}

func TestRevalidateKeepsPriorOnMalformedAnswer(t *testing.T) {
	for _, answer := range []string{
		"no json at all",
		"{\"confirmed\": \"yes\"}", // wrong type, schema rejects
		"{}",                       // missing required field
	} {
		f := &fakeInferencer{docAnswer: answer}
		r := newTestRouter(f)
		assert.Equal(t, "prior", r.Revalidate(context.Background(), "ZG9j", "exam.pdf", "prior"), "answer=%s", answer)
	}
}

func TestRevalidateAppliesCorrection(t *testing.T) {
	f := &fakeInferencer{docAnswer: "```json\n{\"confirmed\": false, \"diagnosis\": \"corrected assessment\"}\n```"}
	r := newTestRouter(f)

	got := r.Revalidate(context.Background(), "ZG9j", "exam.pdf", "prior")
	assert.Equal(t, "corrected assessment", got)
	assert.Equal(t, "prior", f.lastOpts.Context, "prior diagnosis travels as call context")
}

func TestRevalidateConfirmedKeepsPrior(t *testing.T) {
	f := &fakeInferencer{docAnswer: `{"confirmed": true, "diagnosis": "same thing"}`}
	r := newTestRouter(f)
	assert.Equal(t, "prior", r.Revalidate(context.Background(), "ZG9j", "exam.pdf", "prior"))
}

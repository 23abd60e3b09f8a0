package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cred Credential) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Model: "test-model"}, cred, nil)
}

func chatOK(content any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestSubmitRejectsWithoutCredentialsBeforeAnyCall(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}, Credential{})

	_, err := c.SubmitText(context.Background(), "some text", Options{Prompt: "p"})
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = c.SubmitDocumentInline(context.Background(), "Zm9v", Options{Prompt: "p"})
	require.ErrorIs(t, err, ErrMissingCredentials)

	assert.False(t, called, "no network call must be attempted")
}

func TestHeaderConstructionTokenVsCookie(t *testing.T) {
	var auth, cookie string
	handler := func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		cookie = r.Header.Get("Cookie")
		chatOK("ok")(w, r)
	}

	c := newTestClient(t, handler, TokenCredential("tok-123"))
	_, err := c.SubmitText(context.Background(), "t", Options{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", auth)
	assert.Empty(t, cookie)

	c = newTestClient(t, handler, CookieCredential("session=abc"))
	_, err = c.SubmitText(context.Background(), "t", Options{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "session=abc", cookie)
	assert.Empty(t, auth)
}

func TestResolveCredentialPrefersToken(t *testing.T) {
	assert.Equal(t, TokenCredential("tok"), ResolveCredential("tok", "cookie"))
	assert.Equal(t, CookieCredential("cookie"), ResolveCredential("", "cookie"))
	assert.True(t, ResolveCredential("", "").IsZero())
}

func TestInlinePayloadDataURLPrefixIdempotence(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		chatOK("ok")(w, r)
	}, TokenCredential("tok"))

	_, err := c.SubmitDocumentInline(context.Background(), "AAAA", Options{Prompt: "p", Filename: "exam.pdf"})
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	file := got.Messages[0].Content[1].File
	require.NotNil(t, file)
	assert.Equal(t, "data:application/pdf;base64,AAAA", file.FileData)

	_, err = c.SubmitDocumentInline(context.Background(), "data:application/pdf;base64,AAAA", Options{Prompt: "p"})
	require.NoError(t, err)
	file = got.Messages[0].Content[1].File
	assert.Equal(t, "data:application/pdf;base64,AAAA", file.FileData, "already-prefixed payload must be unchanged")
}

func TestEngineSelectionPrecedence(t *testing.T) {
	var got chatRequest
	capture := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		chatOK("ok")(w, r)
	}

	c := newTestClient(t, capture, TokenCredential("tok"))
	c.cfg.Engine = "mistral-ocr"
	_, err := c.SubmitDocumentInline(context.Background(), "AAAA", Options{Prompt: "p", Engine: "native"})
	require.NoError(t, err)
	require.Len(t, got.Plugins, 1)
	assert.Equal(t, "native", got.Plugins[0].PDF.Engine, "explicit option wins")

	_, err = c.SubmitDocumentInline(context.Background(), "AAAA", Options{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "mistral-ocr", got.Plugins[0].PDF.Engine, "config default second")

	c.cfg.Engine = ""
	_, err = c.SubmitDocumentInline(context.Background(), "AAAA", Options{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", got.Plugins[0].PDF.Engine, "hardcoded default last")
}

func TestContextAttachesPriorDiagnosisBlock(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		chatOK("ok")(w, r)
	}, TokenCredential("tok"))

	_, err := c.SubmitDocumentInline(context.Background(), "AAAA", Options{Prompt: "p", Context: "prior diagnosis text"})
	require.NoError(t, err)
	require.Len(t, got.Messages[0].Content, 3)
	assert.Contains(t, got.Messages[0].Content[2].Text, "prior diagnosis text")
}

func TestNormalizeContentShapes(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"plain string", "a diagnosis", "a diagnosis"},
		{
			"segment list with text objects",
			[]any{
				map[string]any{"type": "text", "text": "part one "},
				map[string]any{"type": "image_url", "image_url": "ignored"},
				"raw string part",
			},
			"part one raw string part",
		},
		{"unknown object shapes discarded", []any{map[string]any{"foo": 1}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, normalizeContent(raw))
		})
	}
}

func TestEmptyNormalizedResponseIsError(t *testing.T) {
	c := newTestClient(t, chatOK([]any{map[string]any{"foo": "bar"}}), TokenCredential("tok"))
	_, err := c.SubmitText(context.Background(), "t", Options{Prompt: "p"})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestUpstreamErrorNormalization(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"object message", 401, `{"error":{"message":"No cookie auth credentials found"}}`, credentialsRejectedMsg},
		{"bare string error", 500, `{"error":"backend exploded"}`, "backend exploded"},
		{"no message at all", 502, `{}`, "request failed, status=502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, TokenCredential("tok"))

			_, err := c.SubmitText(context.Background(), "t", Options{Prompt: "p"})
			var ue *UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tt.status, ue.Status)
			assert.Equal(t, tt.want, ue.Message)
		})
	}
}

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// PageEngine recognizes the text on a single rasterized page image.
type PageEngine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// gosseractEngine is the primary, in-process recognition engine.
type gosseractEngine struct {
	lang string
}

func (gosseractEngine) Name() string { return "gosseract" }

func (e gosseractEngine) Recognize(_ context.Context, imagePath string) (string, error) {
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if e.lang != "" {
		if err := client.SetLanguage(e.lang); err != nil {
			return "", fmt.Errorf("set language %q: %w", e.lang, err)
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// cliEngine is the secondary recognition engine: an external process invoked
// per page with an image path and a language code, stdout captured as the
// recognized text. A non-zero exit is an engine-level failure.
type cliEngine struct {
	runner Runner
	bin    string
	lang   string
}

func (e cliEngine) Name() string { return e.bin }

func (e cliEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.bin, imagePath, e.lang)
	if err != nil {
		return "", fmt.Errorf("%s: %w (stderr: %s)", e.bin, err, truncate(string(errb), 512))
	}
	return strings.TrimSpace(string(out)), nil
}

package analyze

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"github.com/screenwatch/screenwatch/internal/trace"
)

// Tesseract extracts text from frames by shelling out to the tesseract
// binary. Frames are piped in as PNG; no temp files touch disk.
type Tesseract struct {
	Binary string
	Lang   string
}

// NewTesseract returns a Tesseract analyzer with default binary and
// language settings.
func NewTesseract() *Tesseract {
	return &Tesseract{Binary: "tesseract", Lang: "eng"}
}

// Available reports whether the tesseract binary can be found on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Binary)
	return err == nil
}

// Analyze runs OCR over the frame and returns the recognized text.
func (t *Tesseract) Analyze(ctx context.Context, img image.Image) (*Metadata, error) {
	ctx, span := trace.StartSpan(ctx, "ocr")
	defer span.End()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame for ocr: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.Binary, "stdin", "stdout", "-l", t.Lang)
	cmd.Stdin = &buf
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}

	text := strings.TrimSpace(string(out))
	span.SetAttr("chars", len(text))
	if text == "" {
		return nil, nil
	}
	return &Metadata{Text: text}, nil
}

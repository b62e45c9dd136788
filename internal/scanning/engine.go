package scanning

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
)

// Word is one recognized word and its position on the page.
type Word struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// Texts returns the text of each word, in order.
func Texts(words []Word) []string {
	texts := make([]string, 0, len(words))
	for _, w := range words {
		texts = append(texts, w.Text)
	}
	return texts
}

// Engine runs text recognition over a PNG-encoded image.
type Engine interface {
	// Text returns the page text for one language configuration and segmentation mode.
	Text(ctx context.Context, png []byte, language string, mode gosseract.PageSegMode) (string, error)
	// Words returns word-level results in reading order.
	Words(ctx context.Context, png []byte, language string, mode gosseract.PageSegMode) ([]Word, error)
}

// Tesseract implements Engine with the tesseract library.
// Each call uses its own client, so calls may run concurrently.
type Tesseract struct {
	tessdataPrefix string
}

// NewTesseract creates a Tesseract engine. An empty tessdataPrefix uses the library default.
func NewTesseract(tessdataPrefix string) *Tesseract {
	return &Tesseract{tessdataPrefix: tessdataPrefix}
}

func (t *Tesseract) client(png []byte, language string, mode gosseract.PageSegMode) (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if t.tessdataPrefix != "" {
		client.TessdataPrefix = t.tessdataPrefix
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting language %s: %w", language, err)
	}
	if err := client.SetPageSegMode(mode); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting variable: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		client.Close()
		return nil, fmt.Errorf("loading image: %w", err)
	}
	return client, nil
}

// Text implements Engine.
func (t *Tesseract) Text(ctx context.Context, png []byte, language string, mode gosseract.PageSegMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client, err := t.client(png, language, mode)
	if err != nil {
		return "", err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return text, nil
}

// Words implements Engine.
func (t *Tesseract) Words(ctx context.Context, png []byte, language string, mode gosseract.PageSegMode) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := t.client(png, language, mode)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognizing words: %w", err)
	}
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{Text: b.Word, Box: b.Box, Confidence: b.Confidence})
	}
	return words, nil
}

var _ Engine = (*Tesseract)(nil)

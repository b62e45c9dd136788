// Package scanning turns receipt photos into best-effort text.
package scanning

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/errgroup"
)

// ErrRecognition marks a failed recognition pass. It is logged, never returned by Recognize.
var ErrRecognition = errors.New("recognition failed")

// Variant names the pre-processed image a pass reads.
type Variant string

const (
	VariantEnhanced Variant = "enhanced"
	VariantBinary   Variant = "binary"
)

// Pass outcomes reported to the Observer.
const (
	OutcomeText  = "text"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	languages = []string{"eng", "eng+ind"}
	modes     = []gosseract.PageSegMode{gosseract.PSM_SINGLE_BLOCK, gosseract.PSM_SINGLE_COLUMN, gosseract.PSM_SPARSE_TEXT}
	variants  = []Variant{VariantEnhanced, VariantBinary}
)

// Pass is one language, segmentation mode and image variant combination.
type Pass struct {
	Language string
	Mode     gosseract.PageSegMode
	Variant  Variant
}

func (p Pass) String() string {
	return fmt.Sprintf("%s/psm%d/%s", p.Language, p.Mode, p.Variant)
}

// Passes lists the recognition sweep in its fixed order.
func Passes() []Pass {
	passes := make([]Pass, 0, len(languages)*len(modes)*len(variants))
	for _, lang := range languages {
		for _, mode := range modes {
			for _, variant := range variants {
				passes = append(passes, Pass{Language: lang, Mode: mode, Variant: variant})
			}
		}
	}
	return passes
}

// PassResult is the output of one pass.
type PassResult struct {
	Pass Pass
	Text string
	Err  error
}

// Observer receives recognition measurements.
type Observer interface {
	ObservePass(pass Pass, outcome string)
	ObserveSweep(duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObservePass(Pass, string)   {}
func (noopObserver) ObserveSweep(time.Duration) {}

// Config holds the optional collaborators of a Recognizer.
type Config struct {
	// Transcriber is consulted only when every pass comes back empty.
	Transcriber Transcriber
	// Concurrency bounds the passes in flight; zero or less runs them all at once.
	Concurrency int
	Observer    Observer
}

// Recognizer runs the pre-processing and multi-pass recognition pipeline.
type Recognizer struct {
	engine      Engine
	transcriber Transcriber
	concurrency int
	observer    Observer
}

// NewRecognizer creates a Recognizer over engine.
func NewRecognizer(engine Engine, cfg Config) *Recognizer {
	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &Recognizer{
		engine:      engine,
		transcriber: cfg.Transcriber,
		concurrency: cfg.Concurrency,
		observer:    observer,
	}
}

// Recognize returns the longest text produced by the sweep. Every failure
// yields empty text.
func (r *Recognizer) Recognize(ctx context.Context, data []byte, contentType string) string {
	img, err := decodeImage(data, contentType)
	if err != nil {
		slog.Warn("decoding image for recognition", "error", err)
		return ""
	}

	best := Longest(r.Sweep(ctx, img))
	if strings.TrimSpace(best) != "" || r.transcriber == nil {
		return best
	}

	text, err := r.transcribe(ctx, img)
	if err != nil {
		slog.Warn("vision transcription failed", "error", err)
		return ""
	}
	return text
}

func (r *Recognizer) transcribe(ctx context.Context, img image.Image) (string, error) {
	png, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	return r.transcriber.Transcribe(ctx, png)
}

// Sweep runs every pass over the enhanced and binary variants of img.
// Results are returned in Passes order regardless of completion order.
func (r *Recognizer) Sweep(ctx context.Context, img image.Image) []PassResult {
	start := time.Now()
	defer func() { r.observer.ObserveSweep(time.Since(start)) }()

	enhanced := Enhance(img)
	inputs := make(map[Variant][]byte, len(variants))
	for variant, variantImg := range map[Variant]image.Image{
		VariantEnhanced: enhanced,
		VariantBinary:   Binarize(enhanced),
	} {
		png, err := encodePNG(variantImg)
		if err != nil {
			slog.Warn("encoding variant", "variant", variant, "error", err)
			continue
		}
		inputs[variant] = png
	}

	passes := Passes()
	results := make([]PassResult, len(passes))

	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, pass := range passes {
		results[i].Pass = pass
		png, ok := inputs[pass.Variant]
		if !ok {
			results[i].Err = fmt.Errorf("%w: no %s image", ErrRecognition, pass.Variant)
			r.observer.ObservePass(pass, OutcomeError)
			continue
		}
		g.Go(func() error {
			text, err := r.engine.Text(gctx, png, pass.Language, pass.Mode)
			if err != nil {
				// one failed pass must not cancel the others
				results[i].Err = fmt.Errorf("%w: %s: %w", ErrRecognition, pass, err)
				slog.Debug("recognition pass failed", "pass", pass.String(), "error", err)
				r.observer.ObservePass(pass, OutcomeError)
				return nil
			}
			results[i].Text = text
			if strings.TrimSpace(text) == "" {
				r.observer.ObservePass(pass, OutcomeEmpty)
			} else {
				r.observer.ObservePass(pass, OutcomeText)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Longest picks the longest successful text by character count.
// Ties go to the earliest pass.
func Longest(results []PassResult) string {
	best, bestLen := "", 0
	for _, res := range results {
		if res.Err != nil || strings.TrimSpace(res.Text) == "" {
			continue
		}
		if n := utf8.RuneCountInString(res.Text); n > bestLen {
			best, bestLen = res.Text, n
		}
	}
	return best
}

// Words runs a single word-level pass over the enhanced image.
func (r *Recognizer) Words(ctx context.Context, data []byte, contentType string) []Word {
	img, err := decodeImage(data, contentType)
	if err != nil {
		slog.Warn("decoding image for word pass", "error", err)
		return nil
	}
	png, err := encodePNG(Enhance(img))
	if err != nil {
		slog.Warn("encoding image for word pass", "error", err)
		return nil
	}
	words, err := r.engine.Words(ctx, png, languages[0], gosseract.PSM_SINGLE_BLOCK)
	if err != nil {
		slog.Debug("word pass failed", "error", err)
		return nil
	}
	return words
}

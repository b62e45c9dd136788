package scanning

import (
	"context"
	"strings"
)

// Transcriber reads text from an image with a vision model.
type Transcriber interface {
	// Transcribe returns the text visible in a PNG image
	Transcribe(ctx context.Context, png []byte) (string, error)
	// Close releases the transcriber's resources
	Close() error
}

// cleanTranscript strips the markdown fences vision models like to add.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks, with or without a language tag
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], " \t") {
			text = text[nl+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}

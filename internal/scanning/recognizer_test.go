package scanning

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/otiai10/gosseract/v2"
)

var _ = Describe("Passes", func() {
	It("should cover two languages, three modes and two variants", func() {
		passes := Passes()
		Expect(passes).To(HaveLen(12))
		Expect(passes[0]).To(Equal(Pass{Language: "eng", Mode: gosseract.PSM_SINGLE_BLOCK, Variant: VariantEnhanced}))
		Expect(passes[1].Variant).To(Equal(VariantBinary))
		Expect(passes[11].Language).To(Equal("eng+ind"))
		Expect(passes[11].Mode).To(Equal(gosseract.PSM_SPARSE_TEXT))
	})
})

var _ = Describe("Longest", func() {
	It("should prefer the longest text by characters", func() {
		results := []PassResult{
			{Text: "short"},
			{Text: "Rp 12.500 — kopi"},
			{Text: "a much longer text", Err: errors.New("failed")},
		}
		Expect(Longest(results)).To(Equal("Rp 12.500 — kopi"))
	})

	It("should keep the earliest of equal lengths", func() {
		results := []PassResult{{Text: "first"}, {Text: "later"}}
		Expect(Longest(results)).To(Equal("first"))
	})

	It("should ignore whitespace-only output", func() {
		Expect(Longest([]PassResult{{Text: "   \n  "}})).To(BeEmpty())
	})
})

var _ = Describe("Recognizer", func() {
	var (
		ctx         context.Context
		engine      *mockEngine
		transcriber *mockTranscriber
		observer    *recordingObserver
		recognizer  *Recognizer
		data        []byte
		contentType string
		text        string
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = newMockEngine()
		transcriber = nil
		observer = &recordingObserver{}
		data = pngBytes(gradient(40, 30))
		contentType = "image/png"
	})

	JustBeforeEach(func() {
		cfg := Config{Concurrency: 4, Observer: observer}
		if transcriber != nil {
			cfg.Transcriber = transcriber
		}
		recognizer = NewRecognizer(engine, cfg)
		text = recognizer.Recognize(ctx, data, contentType)
	})

	When("passes return different text", func() {
		BeforeEach(func() {
			engine.fallback = "BCA"
			engine.texts[engineKey("eng+ind", gosseract.PSM_SINGLE_COLUMN)] = "BCA\nTotal Rp 12.500"
			engine.errs[engineKey("eng", gosseract.PSM_SPARSE_TEXT)] = errors.New("tesseract crashed")
		})

		It("should return the longest", func() {
			Expect(text).To(Equal("BCA\nTotal Rp 12.500"))
		})

		It("should run every pass", func() {
			Expect(engine.calls).To(Equal(12))
		})

		It("should report outcomes", func() {
			Expect(observer.outcomes[OutcomeError]).To(Equal(2))
			Expect(observer.outcomes[OutcomeText]).To(Equal(10))
			Expect(observer.sweeps).To(Equal(1))
		})
	})

	When("passes finish out of order", func() {
		BeforeEach(func() {
			engine.texts[engineKey("eng", gosseract.PSM_SINGLE_BLOCK)] = "aaaa"
			engine.texts[engineKey("eng+ind", gosseract.PSM_SPARSE_TEXT)] = "bbbb"
			engine.delay = func(language string, mode gosseract.PageSegMode) time.Duration {
				if language == "eng" && mode == gosseract.PSM_SINGLE_BLOCK {
					return 20 * time.Millisecond
				}
				return 0
			}
		})

		It("should still prefer the earliest pass on ties", func() {
			Expect(text).To(Equal("aaaa"))
		})
	})

	When("every pass fails", func() {
		BeforeEach(func() {
			for _, p := range Passes() {
				engine.errs[engineKey(p.Language, p.Mode)] = errors.New("no tessdata")
			}
		})

		It("should return empty text", func() {
			Expect(text).To(BeEmpty())
		})

		When("a transcriber is configured", func() {
			BeforeEach(func() {
				transcriber = &mockTranscriber{text: "BCA\nRp 50.000"}
			})

			It("should fall back to the transcription", func() {
				Expect(text).To(Equal("BCA\nRp 50.000"))
				Expect(transcriber.calls).To(Equal(1))
			})
		})

		When("the transcriber fails too", func() {
			BeforeEach(func() {
				transcriber = &mockTranscriber{err: errors.New("quota")}
			})

			It("should return empty text", func() {
				Expect(text).To(BeEmpty())
			})
		})
	})

	When("passes succeed", func() {
		BeforeEach(func() {
			engine.fallback = "text"
			transcriber = &mockTranscriber{text: "unused"}
		})

		It("should not consult the transcriber", func() {
			Expect(transcriber.calls).To(BeZero())
		})
	})

	When("the image cannot be decoded", func() {
		BeforeEach(func() {
			data = []byte("not an image")
			contentType = "image/jpeg"
		})

		It("should return empty text without running passes", func() {
			Expect(text).To(BeEmpty())
			Expect(engine.calls).To(BeZero())
		})
	})

	Describe("Words", func() {
		It("should return the engine's words", func() {
			engine.words = []Word{{Text: "Rp"}, {Text: "12.500"}}
			Expect(recognizer.Words(ctx, data, contentType)).To(HaveLen(2))
		})

		It("should swallow engine errors", func() {
			engine.wordsErr = errors.New("boom")
			Expect(recognizer.Words(ctx, data, contentType)).To(BeNil())
		})
	})
})

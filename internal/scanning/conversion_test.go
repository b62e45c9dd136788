package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("decodeImage", func() {
	It("should decode PNG data", func() {
		img, err := decodeImage(pngBytes(gradient(10, 8)), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(10))
	})

	It("should sniff the format regardless of the declared type", func() {
		_, err := decodeImage(pngBytes(gradient(10, 8)), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject unknown data", func() {
		_, err := decodeImage([]byte("plain text"), "image/jpeg")
		Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should recognize a HEIC ftyp box", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
	})

	It("should reject short or other data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypisom\x00\x00"))).To(BeFalse())
	})
})

var _ = Describe("cleanTranscript", func() {
	DescribeTable("fences",
		func(in, want string) {
			Expect(cleanTranscript(in)).To(Equal(want))
		},
		Entry("plain", "  BCA\nRp 10.000 ", "BCA\nRp 10.000"),
		Entry("fenced", "```\nBCA\n```", "BCA"),
		Entry("fenced with tag", "```text\nBCA\nRp 10.000\n```", "BCA\nRp 10.000"),
	)
})

var _ = Describe("Texts", func() {
	It("should keep word order", func() {
		Expect(Texts([]Word{{Text: "Rp"}, {Text: "27.500"}})).To(Equal([]string{"Rp", "27.500"}))
	})

	It("should return an empty slice for no words", func() {
		Expect(Texts(nil)).To(BeEmpty())
	})
})

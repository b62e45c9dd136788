package ledger

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Draft", func() {
	var draft Draft

	BeforeEach(func() {
		draft = Draft{
			Description: "Beli kopi",
			Kind:        KindOutcome,
			Category:    "food",
			Bank:        "BCA",
		}
		draft.SetAmount(decimal.NewFromInt(12500))
	})

	It("should validate when every slot is filled", func() {
		Expect(draft.Validate()).To(Succeed())
	})

	DescribeTable("missing slots",
		func(mutate func(*Draft), field string) {
			mutate(&draft)
			err := draft.Validate()
			Expect(errors.Is(err, ErrMissingRequiredField)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(field))
		},
		Entry("short description", func(d *Draft) { d.Description = "ab" }, "description"),
		Entry("no amount", func(d *Draft) { d.Amount = decimal.NullDecimal{} }, "amount"),
		Entry("zero amount", func(d *Draft) { d.SetAmount(decimal.Zero) }, "amount"),
		Entry("unknown kind", func(d *Draft) { d.Kind = "transfer" }, "kind"),
		Entry("blank category", func(d *Draft) { d.Category = "  " }, "category"),
		Entry("blank bank", func(d *Draft) { d.Bank = "" }, "bank"),
	)
})

var _ = Describe("ParseKind", func() {
	DescribeTable("keywords",
		func(in string, want Kind, ok bool) {
			got, found := ParseKind(in)
			Expect(found).To(Equal(ok))
			Expect(got).To(Equal(want))
		},
		Entry("income", "income", KindIncome, true),
		Entry("upper case outcome", " OUTCOME ", KindOutcome, true),
		Entry("unknown", "expense", Kind(""), false),
	)
})

var _ = Describe("Summary", func() {
	It("should compute the balance from added transactions", func() {
		var s Summary
		s.Add(KindIncome, decimal.NewFromInt(100000))
		s.Add(KindOutcome, decimal.NewFromInt(12500))
		s.Add(KindOutcome, decimal.NewFromInt(7500))

		Expect(s.Income.Equal(decimal.NewFromInt(100000))).To(BeTrue())
		Expect(s.Outcome.Equal(decimal.NewFromInt(20000))).To(BeTrue())
		Expect(s.Balance().Equal(decimal.NewFromInt(80000))).To(BeTrue())
	})
})

var _ = Describe("FirstSentence", func() {
	DescribeTable("truncation",
		func(in, want string) {
			Expect(FirstSentence(in)).To(Equal(want))
		},
		Entry("plain", "  Beli kopi  ", "Beli kopi"),
		Entry("period", "Bayar listrik. Bulan Oktober", "Bayar listrik"),
		Entry("earliest separator wins", "Halo! Apa kabar. Baik", "Halo"),
		Entry("newline", "Makan siang\nkantor", "Makan siang"),
		Entry("leading separator", ".hidden", ""),
	)
})

package ledger

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/ledger-bot/internal/datetime"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		store   *mockStore
		service *Service
		user    User
		now     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockStore()
		now = time.Date(2025, 10, 30, 9, 15, 42, 0, jakarta)
		dates := datetime.NewNormalizerWithClock(jakarta, stubClock{now: now})
		service = NewServiceWithDeps(store, dates, fixedTimeSource{now: now})
		user = User{TelegramID: 42, Username: "budi"}
	})

	Describe("Commit", func() {
		var (
			draft Draft
			view  *TransactionView
			err   error
		)

		BeforeEach(func() {
			draft = Draft{
				Description: " Beli kopi ",
				Kind:        KindOutcome,
				Category:    "food",
				Bank:        "BCA",
				Provenance:  ProvenanceInline,
			}
			draft.SetAmount(decimal.NewFromInt(12500))
		})

		JustBeforeEach(func() {
			view, err = service.Commit(ctx, user, draft)
		})

		When("the draft is complete", func() {
			It("should insert one transaction", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(store.transactions).To(HaveLen(1))
				Expect(view.ID).To(Equal("tx-1"))
				Expect(view.Description).To(Equal("Beli kopi"))
				Expect(view.BankName).To(Equal("BCA"))
				Expect(view.CategoryName).To(Equal("food"))
			})

			It("should default occurredAt to now", func() {
				Expect(store.transactions[0].OccurredAt).To(Equal("2025-10-30 09:15:42+07:00"))
			})

			It("should resolve every id", func() {
				t := store.transactions[0]
				Expect(t.UserID).To(Equal("user-1"))
				Expect(t.BankID).To(Equal("bank-1"))
				Expect(t.CategoryID).To(Equal("category-1"))
				Expect(t.CreatedAt).To(Equal(now))
			})
		})

		When("occurredAt is already set", func() {
			BeforeEach(func() {
				draft.OccurredAt = "2025-10-01 08:00:00+07:00"
			})

			It("should keep it", func() {
				Expect(store.transactions[0].OccurredAt).To(Equal("2025-10-01 08:00:00+07:00"))
			})
		})

		When("a slot is missing", func() {
			BeforeEach(func() {
				draft.Bank = ""
			})

			It("should not touch the store", func() {
				Expect(errors.Is(err, ErrMissingRequiredField)).To(BeTrue())
				Expect(store.lookups).To(BeEmpty())
				Expect(store.transactions).To(BeEmpty())
			})
		})

		When("the insert fails", func() {
			BeforeEach(func() {
				store.insertErr = persistenceError("insert transaction", errors.New("disk full"))
			})

			It("should return a persistence error", func() {
				Expect(errors.Is(err, ErrPersistence)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("disk full"))
				Expect(view).To(BeNil())
			})
		})
	})

	Describe("Recent and Summary", func() {
		BeforeEach(func() {
			for _, amount := range []int64{10000, 20000} {
				d := Draft{Description: "makan", Kind: KindOutcome, Category: "food", Bank: "BCA"}
				d.SetAmount(decimal.NewFromInt(amount))
				_, err := service.Commit(ctx, user, d)
				Expect(err).NotTo(HaveOccurred())
			}
			income := Draft{Description: "gaji", Kind: KindIncome, Category: "salary", Bank: "BCA"}
			income.SetAmount(decimal.NewFromInt(100000))
			_, err := service.Commit(ctx, user, income)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should list the user's transactions", func() {
			views, err := service.Recent(ctx, user)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(3))
		})

		It("should summarize the user's transactions", func() {
			summary, err := service.Summary(ctx, user)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Balance().Equal(decimal.NewFromInt(70000))).To(BeTrue())
		})

		It("should propagate user lookup failures", func() {
			store.userErr = errors.New("offline")
			_, err := service.Summary(ctx, user)
			Expect(err).To(MatchError("offline"))
		})
	})

	Describe("names", func() {
		It("should list bank names", func() {
			names, err := service.BankNames(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"BCA", "Mandiri"}))
		})

		It("should list category names", func() {
			names, err := service.CategoryNames(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"food"}))
		})
	})
})

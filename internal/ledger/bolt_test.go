package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("BoltStore", func() {
	var (
		ctx   context.Context
		store *BoltStore
		now   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 10, 30, 9, 0, 0, 0, jakarta)
		var err error
		store, err = NewBoltStoreWithDeps(
			filepath.Join(GinkgoT().TempDir(), "ledger.db"),
			&sequenceIDGenerator{},
			fixedTimeSource{now: now},
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("LookupOrCreateUser", func() {
		It("should return the same id for the same telegram id", func() {
			first, err := store.LookupOrCreateUser(ctx, User{TelegramID: 42, Username: "budi"})
			Expect(err).NotTo(HaveOccurred())

			second, err := store.LookupOrCreateUser(ctx, User{TelegramID: 42, Username: "renamed"})
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("should create distinct users for distinct telegram ids", func() {
			a, _ := store.LookupOrCreateUser(ctx, User{TelegramID: 1})
			b, _ := store.LookupOrCreateUser(ctx, User{TelegramID: 2})
			Expect(a).NotTo(Equal(b))
		})
	})

	Describe("LookupOrCreateBank", func() {
		It("should be idempotent by name", func() {
			first, err := store.LookupOrCreateBank(ctx, "BCA")
			Expect(err).NotTo(HaveOccurred())
			second, err := store.LookupOrCreateBank(ctx, " BCA ")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("should reject a blank name", func() {
			_, err := store.LookupOrCreateBank(ctx, " ")
			Expect(errors.Is(err, ErrPersistence)).To(BeTrue())
			Expect(errors.Is(err, ErrMissingRequiredField)).To(BeTrue())
		})
	})

	Describe("ListBanks and ListCategories", func() {
		BeforeEach(func() {
			for _, name := range []string{"Mandiri", "BCA", "Jago"} {
				_, err := store.LookupOrCreateBank(ctx, name)
				Expect(err).NotTo(HaveOccurred())
			}
			for _, name := range []string{"transport", "food"} {
				_, err := store.LookupOrCreateCategory(ctx, name)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should order banks by name", func() {
			banks, err := store.ListBanks(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(banks).To(HaveLen(3))
			Expect(banks[0].Name).To(Equal("BCA"))
			Expect(banks[1].Name).To(Equal("Jago"))
			Expect(banks[2].Name).To(Equal("Mandiri"))
		})

		It("should order categories by name", func() {
			categories, err := store.ListCategories(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(categories).To(HaveLen(2))
			Expect(categories[0].Name).To(Equal("food"))
		})
	})

	Describe("transactions", func() {
		var userID, otherID, bankID, categoryID string

		insert := func(user, desc string, kind Kind, amount int64, at string) {
			t := &Transaction{
				UserID:      user,
				BankID:      bankID,
				CategoryID:  categoryID,
				Kind:        kind,
				Description: desc,
				Amount:      decimal.NewFromInt(amount),
				OccurredAt:  at,
			}
			Expect(store.InsertTransaction(ctx, t)).To(Succeed())
			Expect(t.ID).NotTo(BeEmpty())
			Expect(t.CreatedAt).To(Equal(now))
		}

		BeforeEach(func() {
			userID, _ = store.LookupOrCreateUser(ctx, User{TelegramID: 42})
			otherID, _ = store.LookupOrCreateUser(ctx, User{TelegramID: 43})
			bankID, _ = store.LookupOrCreateBank(ctx, "BCA")
			categoryID, _ = store.LookupOrCreateCategory(ctx, "food")

			insert(userID, "kopi", KindOutcome, 12500, "2025-10-29 08:00:00+07:00")
			insert(userID, "gaji", KindIncome, 5000000, "2025-10-30 09:00:00+07:00")
			insert(userID, "makan", KindOutcome, 30000, "2025-10-28 12:00:00+07:00")
			insert(otherID, "lain", KindOutcome, 99000, "2025-10-30 10:00:00+07:00")
		})

		It("should list only the user's transactions newest first", func() {
			views, err := store.RecentTransactions(ctx, userID, RecentLimit)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(3))
			Expect(views[0].Description).To(Equal("gaji"))
			Expect(views[1].Description).To(Equal("kopi"))
			Expect(views[2].Description).To(Equal("makan"))
			Expect(views[0].BankName).To(Equal("BCA"))
			Expect(views[0].CategoryName).To(Equal("food"))
		})

		It("should apply the limit", func() {
			views, err := store.RecentTransactions(ctx, userID, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(2))
		})

		It("should summarize by kind", func() {
			summary, err := store.Summarize(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Income.Equal(decimal.NewFromInt(5000000))).To(BeTrue())
			Expect(summary.Outcome.Equal(decimal.NewFromInt(42500))).To(BeTrue())
		})

		It("should return an empty summary for a user without transactions", func() {
			fresh, _ := store.LookupOrCreateUser(ctx, User{TelegramID: 99})
			summary, err := store.Summarize(ctx, fresh)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Balance().IsZero()).To(BeTrue())
		})
	})

	Describe("persistence across reopen", func() {
		It("should keep committed ids", func() {
			path := filepath.Join(GinkgoT().TempDir(), "reopen.db")
			first, err := NewBoltStore(path)
			Expect(err).NotTo(HaveOccurred())
			id, err := first.LookupOrCreateCategory(ctx, "food")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close()).To(Succeed())

			second, err := NewBoltStore(path)
			Expect(err).NotTo(HaveOccurred())
			defer second.Close()
			again, err := second.LookupOrCreateCategory(ctx, "food")
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(id))
		})
	})
})

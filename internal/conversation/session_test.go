package conversation

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/ledger-bot/internal/ledger"
)

var _ = Describe("SessionStore", func() {
	var (
		clock *manualClock
		store *SessionStore
	)

	BeforeEach(func() {
		clock = &manualClock{now: now}
		store = NewSessionStoreWithClock(30*time.Minute, 0, clock)
	})

	AfterEach(func() {
		store.Stop()
	})

	It("should return a copy of the stored session", func() {
		store.Put(&Session{UserID: 7, State: StateBank, BankOptions: []string{"BCA"}})

		got, ok := store.Get(7)
		Expect(ok).To(BeTrue())
		got.BankOptions[0] = "changed"
		got.State = StateIdle

		again, _ := store.Get(7)
		Expect(again.State).To(Equal(StateBank))
		Expect(again.BankOptions).To(Equal([]string{"BCA"}))
	})

	It("should stamp the activity time on put", func() {
		store.Put(&Session{UserID: 7})

		got, _ := store.Get(7)
		Expect(got.UpdatedAt).To(Equal(now))
	})

	It("should report a missing session", func() {
		_, ok := store.Get(99)
		Expect(ok).To(BeFalse())
	})

	When("a session is idle longer than the TTL", func() {
		BeforeEach(func() {
			store.Put(&Session{UserID: 7, State: StateAmount, Draft: ledger.Draft{Description: "Beli kopi"}})
			clock.Advance(31 * time.Minute)
		})

		It("should be gone on read", func() {
			_, ok := store.Get(7)
			Expect(ok).To(BeFalse())
			Expect(store.Len()).To(Equal(0))
		})

		It("should be removed by a sweep", func() {
			Expect(store.cleanup()).To(Equal(1))
			Expect(store.Len()).To(Equal(0))
		})
	})

	When("the session was refreshed recently", func() {
		It("should survive a sweep", func() {
			store.Put(&Session{UserID: 7})
			clock.Advance(20 * time.Minute)
			store.Put(&Session{UserID: 7})
			clock.Advance(20 * time.Minute)

			Expect(store.cleanup()).To(Equal(0))
			_, ok := store.Get(7)
			Expect(ok).To(BeTrue())
		})
	})

	It("should delete sessions", func() {
		store.Put(&Session{UserID: 7})
		store.Delete(7)
		Expect(store.Len()).To(Equal(0))
	})

	It("should allow Stop to be called twice", func() {
		store.Stop()
		Expect(store.Stop).NotTo(Panic())
	})

	Describe("Lock", func() {
		It("should serialize holders of the same user", func() {
			unlock := store.Lock(7)
			acquired := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				release := store.Lock(7)
				close(acquired)
				release()
			}()

			Consistently(acquired, 50*time.Millisecond).ShouldNot(BeClosed())
			unlock()
			Eventually(acquired).Should(BeClosed())
		})

		It("should drop lock entries once released", func() {
			for id := int64(1); id <= 1000; id++ {
				unlock := store.Lock(id)
				store.Put(&Session{UserID: id})
				store.Delete(id)
				unlock()
			}

			Expect(store.Len()).To(Equal(0))
			Expect(store.lockCount()).To(Equal(0))
		})

		It("should keep the entry while another holder waits", func() {
			unlock := store.Lock(7)
			acquired := make(chan struct{})
			released := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				release := store.Lock(7)
				close(acquired)
				<-released
				release()
			}()

			Eventually(func() int {
				store.locksMu.Lock()
				defer store.locksMu.Unlock()
				return store.locks[7].refs
			}).Should(Equal(2))
			unlock()
			Eventually(acquired).Should(BeClosed())
			Expect(store.lockCount()).To(Equal(1))

			close(released)
			Eventually(store.lockCount).Should(Equal(0))
		})

		It("should tolerate a double release", func() {
			unlock := store.Lock(7)
			unlock()
			Expect(unlock).NotTo(Panic())
			Expect(store.lockCount()).To(Equal(0))
		})

		It("should not block other users", func() {
			unlock := store.Lock(7)
			defer unlock()

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				store.Lock(8)()
				close(done)
			}()
			Eventually(done).Should(BeClosed())
		})
	})
})

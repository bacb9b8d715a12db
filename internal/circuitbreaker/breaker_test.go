package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/asset-worker/internal/circuitbreaker"
)

var _ = Describe("CircuitBreaker", func() {
	var cb *circuitbreaker.CircuitBreaker

	trip := func() {
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordFailure()
	}

	Describe("New", func() {
		It("should create a circuit breaker in closed state", func() {
			cb = circuitbreaker.New(5, 30*time.Second)
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Allow()).To(Succeed())
		})

		It("should open on the first failure when threshold is zero", func() {
			cb = circuitbreaker.New(0, time.Minute)
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("State transitions", func() {
		BeforeEach(func() {
			cb = circuitbreaker.New(3, 100*time.Millisecond)
		})

		Context("when in CLOSED state", func() {
			It("should remain closed after failures below threshold", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Allow()).To(Succeed())
			})

			It("should reset the failure count on success", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.Record(true)
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			})

			It("should transition to OPEN after reaching failure threshold", func() {
				trip()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})
		})

		Context("when in OPEN state", func() {
			BeforeEach(trip)

			It("should reject requests with ErrOpen", func() {
				Expect(cb.Allow()).To(MatchError(circuitbreaker.ErrOpen))
			})

			It("should transition to HALF-OPEN after reset timeout", func() {
				time.Sleep(150 * time.Millisecond)
				Expect(cb.Allow()).To(Succeed())
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			})
		})

		Context("when in HALF-OPEN state", func() {
			BeforeEach(func() {
				trip()
				time.Sleep(150 * time.Millisecond)
				Expect(cb.Allow()).To(Succeed())
			})

			It("should admit only one probe", func() {
				Expect(cb.Allow()).To(MatchError(circuitbreaker.ErrOpen))
			})

			It("should close after a successful probe", func() {
				cb.Record(true)
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Allow()).To(Succeed())
			})

			It("should admit a new probe once the previous one is released", func() {
				cb.Release()
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
				Expect(cb.Allow()).To(Succeed())
			})

			It("should reopen after a failed probe", func() {
				cb.Record(false)
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
				Expect(cb.Allow()).To(MatchError(circuitbreaker.ErrOpen))
			})
		})
	})

	Describe("Concurrency", func() {
		It("should be safe for concurrent use", func() {
			cb = circuitbreaker.New(50, time.Second)

			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = cb.Allow()
					cb.Record(i%2 == 0)
				}(i)
			}
			wg.Wait()
		})
	})

	Describe("State.String", func() {
		It("should name every state", func() {
			Expect(circuitbreaker.StateClosed.String()).To(Equal("CLOSED"))
			Expect(circuitbreaker.StateOpen.String()).To(Equal("OPEN"))
			Expect(circuitbreaker.StateHalfOpen.String()).To(Equal("HALF-OPEN"))
			Expect(circuitbreaker.State(42).String()).To(Equal("UNKNOWN"))
		})
	})
})

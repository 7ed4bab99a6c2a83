package network

import "time"

const retryDelay = 10 * time.Second

// Retry sleeps between failed attempts, doubling the pause each time.
type Retry struct {
	delay time.Duration
}

func NewRetry() Retry { return Retry{delay: retryDelay} }

// Fail blocks for the current delay.
func (r *Retry) Fail() {
	time.Sleep(r.delay)
	r.delay *= 2
}

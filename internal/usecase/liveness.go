package usecase

import "sync/atomic"

// Liveness is captured when an operation starts and released when its
// consumer goes away. Results of operations whose token was released are
// discarded instead of applied. A nil token is always alive.
type Liveness struct {
	released atomic.Bool
}

// NewLiveness returns a live token.
func NewLiveness() *Liveness {
	return &Liveness{}
}

// Release marks the consumer as gone.
func (l *Liveness) Release() {
	if l != nil {
		l.released.Store(true)
	}
}

// Alive reports whether results may still be applied.
func (l *Liveness) Alive() bool {
	return l == nil || !l.released.Load()
}

package utilities

import "context"

// Gate bounds the number of concurrent holders. Acquire blocks until a slot
// is free or ctx is done.
type Gate struct {
	slots chan struct{}
}

func NewGate(n int) *Gate {
	return &Gate{slots: make(chan struct{}, max(1, n))}
}

func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free.
func (g *Gate) TryAcquire() bool {
	select {
	case g.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}

func (g *Gate) Inflight() int { return len(g.slots) }

// Available is the number of free slots.
func (g *Gate) Available() int { return cap(g.slots) - len(g.slots) }

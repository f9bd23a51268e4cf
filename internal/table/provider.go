package table

import "sync/atomic"

// Provider hands out the current table snapshot. Readers get an immutable
// pointer, so a refresh never disturbs computations already in flight.
type Provider struct {
	cur atomic.Pointer[Snapshot]
}

// NewProvider creates a provider seeded with an initial snapshot, which may
// be nil when no data has been loaded yet.
func NewProvider(s *Snapshot) *Provider {
	p := &Provider{}
	if s != nil {
		p.cur.Store(s)
	}
	return p
}

// Current returns the active snapshot, or nil when none is loaded.
func (p *Provider) Current() *Snapshot {
	return p.cur.Load()
}

// Swap atomically replaces the active snapshot.
func (p *Provider) Swap(s *Snapshot) {
	p.cur.Store(s)
}

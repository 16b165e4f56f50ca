package store

// Noop discards everything. It is used when history is disabled.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) RecordSnapshot(_ Snapshot) error { return nil }
func (n *Noop) RecordSync(_ SyncAttempt) error { return nil }
func (n *Noop) RecordPeriod(_ ClosedPeriod) error { return nil }
func (n *Noop) Snapshots(_ string, _ int) ([]Snapshot, error) { return nil, nil }
func (n *Noop) Close() error { return nil }

package relay

import (
	"sync/atomic"

	"github.com/ecodeclub/ekit/syncx"
)

// FailureSet remembers every failing diagnostic the relay has returned.
// It is created empty at startup and only grows; nothing is pruned or persisted,
// so a restart forgets everything. Safe for concurrent use.
type FailureSet struct {
	seen syncx.Map[string, struct{}]
	size atomic.Int64
}

func NewFailureSet() *FailureSet {
	return &FailureSet{}
}

// Add records log and reports whether it was already present.
// The membership check and the insert happen atomically.
func (s *FailureSet) Add(log string) (seen bool) {
	_, loaded := s.seen.LoadOrStore(log, struct{}{})
	if !loaded {
		s.size.Add(1)
	}
	return loaded
}

// Len returns the number of distinct diagnostics recorded.
func (s *FailureSet) Len() int {
	return int(s.size.Load())
}

package core

import (
	"fmt"
	"sync/atomic"
)

// IDSequence hands out monotonically increasing, process-unique order IDs
// in the form "ord-<n>", matching the duck-typed "id assigned exactly once
// at admission" design note: the zero value is ready to use.
type IDSequence struct {
	counter uint64
}

// Next returns the next id in the sequence. Safe for concurrent use.
func (s *IDSequence) Next() string {
	n := atomic.AddUint64(&s.counter, 1)
	return fmt.Sprintf("ord-%d", n)
}

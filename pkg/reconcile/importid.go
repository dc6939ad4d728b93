package reconcile

import (
	"fmt"
	"time"
)

// ImportIDPrefix marks transactions created by fx-sync.
const ImportIDPrefix = "FXS"

// ImportIDGenerator hands out import ids that are unique across runs:
// the process start time in milliseconds plus a sequence number.
type ImportIDGenerator struct {
	prefix string
	next   int
}

// NewImportIDGenerator creates a generator for a process started at start.
func NewImportIDGenerator(start time.Time) *ImportIDGenerator {
	start = start.UTC()
	return &ImportIDGenerator{
		prefix: fmt.Sprintf("%s:%s%03d", ImportIDPrefix, start.Format("20060102:150405"), start.Nanosecond()/int(time.Millisecond)),
	}
}

// Next returns the next import id.
func (g *ImportIDGenerator) Next() string {
	id := fmt.Sprintf("%s:%d", g.prefix, g.next)
	g.next++
	return id
}

package reconcile

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

// TempIDGenerator issues placeholder message ids of the form
// temp-<unix-millis>-<seq>. The sequence is owned by the generator instance
// (one per session) so ids never repeat within a session and tests can start
// from a fresh counter.
type TempIDGenerator struct {
	seq atomic.Int64
	now func() time.Time
}

func NewTempIDGenerator() *TempIDGenerator {
	return &TempIDGenerator{now: time.Now}
}

func (g *TempIDGenerator) Next() string {
	return fmt.Sprintf("%s%d-%d", entity.TempIDPrefix, g.now().UnixMilli(), g.seq.Add(1))
}

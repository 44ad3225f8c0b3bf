package server

import (
	"fmt"
	"sync/atomic"
)

// connCounter backs connID; grounded on the teacher's own preference
// for simple in-process counters over UUID libraries for connection
// bookkeeping (netLayer's connection-id fields).
var connCounter uint64

func nextConnID() string {
	return fmt.Sprintf("c%d", atomic.AddUint64(&connCounter, 1))
}

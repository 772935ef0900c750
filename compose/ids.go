package compose

import (
	"strconv"
	"sync/atomic"
)

// ScopeID identifies a recomposition scope. Ids are never reused within a
// process.
type ScopeID uint64

// Root is the application-level scope.
const Root ScopeID = 0

var lastScopeID atomic.Uint64

// NewScopeID allocates the next scope id. Root is never returned.
func NewScopeID() ScopeID {
	id := lastScopeID.Add(1)
	if id == 0 {
		panic("compose: scope id overflow")
	}
	return ScopeID(id)
}

func (s ScopeID) String() string {
	if s == Root {
		return "root"
	}
	return "scope#" + strconv.FormatUint(uint64(s), 10)
}

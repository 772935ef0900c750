package compose_test

import (
	"sync"
	"testing"

	"github.com/delaneyj/recompose/compose"
	"github.com/stretchr/testify/assert"
)

func TestDirtySetDrainSortsAndDedupes(t *testing.T) {
	d := compose.NewDirtySet()
	assert.False(t, d.NonEmpty())

	d.Mark(7)
	d.Mark(compose.Root)
	d.Mark(3)
	d.Mark(7)
	assert.Equal(t, 3, d.Len())
	assert.True(t, d.Contains(3))

	assert.Equal(t, []compose.ScopeID{compose.Root, 3, 7}, d.Drain())
	assert.False(t, d.NonEmpty())
	assert.Empty(t, d.Drain())
}

func TestDirtySetMarksAfterDrainWait(t *testing.T) {
	d := compose.NewDirtySet()
	d.Mark(1)
	first := d.Drain()
	d.Mark(2)
	assert.Equal(t, []compose.ScopeID{1}, first)
	assert.Equal(t, []compose.ScopeID{2}, d.Drain())
}

func TestDirtySetConcurrentMark(t *testing.T) {
	d := compose.NewDirtySet()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				d.Mark(compose.ScopeID(i))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, d.Drain(), 100)
}

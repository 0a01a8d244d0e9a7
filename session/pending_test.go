package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingTablesDrainAllEmptiesAndReturnsEverything(t *testing.T) {
	p := newPendingTables()
	p.calls[1] = &callEntry{lane: InlineLane{}}
	p.registers[2] = &registerEntry{lane: InlineLane{}}
	p.unregisters[3] = &unregisterEntry{lane: InlineLane{}}
	p.subscribes[4] = &subscribeEntry{lane: InlineLane{}}
	p.unsubscribes[5] = &unsubscribeEntry{lane: InlineLane{}}
	p.publishes[6] = &publishEntry{lane: InlineLane{}}

	d := p.drainAll()

	assert.Len(t, d.calls, 1)
	assert.Len(t, d.registers, 1)
	assert.Len(t, d.unregisters, 1)
	assert.Len(t, d.subscribes, 1)
	assert.Len(t, d.unsubscribes, 1)
	assert.Len(t, d.publishes, 1)

	assert.Empty(t, p.calls)
	assert.Empty(t, p.registers)
	assert.Empty(t, p.unregisters)
	assert.Empty(t, p.subscribes)
	assert.Empty(t, p.unsubscribes)
	assert.Empty(t, p.publishes)
}

func TestPendingTablesDepthReportsCurrentOccupancy(t *testing.T) {
	p := newPendingTables()
	p.calls[1] = &callEntry{}
	p.calls[2] = &callEntry{}
	p.registers[1] = &registerEntry{}
	p.subscribes[1] = &subscribeEntry{}

	calls, registers, subscribes := p.depth()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, registers)
	assert.Equal(t, 1, subscribes)
}

func TestInlineLanePostRunsSynchronously(t *testing.T) {
	var ran bool
	InlineLane{}.Post(func() { ran = true })
	assert.True(t, ran)
}

func TestSerialLaneRunsInArrivalOrder(t *testing.T) {
	lane := NewSerialLane(4)
	defer lane.Close()

	var order []int
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		i := i
		lane.Post(func() {
			order = append(order, i)
			done <- struct{}{}
		})
	}
	for i := 0; i < 3; i++ {
		<-done
	}
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSerialLanePostAfterCloseIsNoOp(t *testing.T) {
	lane := NewSerialLane(1)
	lane.Close()
	assert.NotPanics(t, func() {
		lane.Post(func() { t.Fatal("should never run") })
	})
}

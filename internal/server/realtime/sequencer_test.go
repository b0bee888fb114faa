package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSequencer(t *testing.T) {
	seq := NewSequencer()

	require.NotNil(t, seq)
	assert.Equal(t, int64(0), seq.Current())
	assert.NotEmpty(t, seq.NodeID())
	assert.NotEqual(t, seq.NodeID(), NewSequencer().NodeID(), "node ids must differ")

	assert.Equal(t, "node-1", NewSequencerWithNodeID("node-1").NodeID())
}

func TestSequencer_Next_Monotonic(t *testing.T) {
	seq := NewSequencer()

	var previous int64
	for range 100 {
		current := seq.Next()
		assert.Greater(t, current, previous)
		previous = current
	}
	assert.Equal(t, int64(100), seq.Current())
}

func TestSequencer_Observe(t *testing.T) {
	tests := []struct {
		name   string
		local  int64
		remote int64
		want   int64
	}{
		{name: "remote ahead", local: 5, remote: 10, want: 11},
		{name: "remote behind", local: 15, remote: 10, want: 16},
		{name: "equal", local: 10, remote: 10, want: 11},
		{name: "remote zero", local: 5, remote: 0, want: 6},
		{name: "both zero", local: 0, remote: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := NewSequencer()
			seq.counter = tt.local

			assert.Equal(t, tt.want, seq.Observe(tt.remote))
			assert.Equal(t, tt.want, seq.Current())
		})
	}
}

func TestSequencer_NextAfterObserve(t *testing.T) {
	seq := NewSequencer()

	seq.Observe(10)
	assert.Equal(t, int64(12), seq.Next())
	assert.Equal(t, int64(13), seq.Next())

	// Событие с меньшим номером не уменьшает счетчик
	assert.Equal(t, int64(14), seq.Observe(5))
}

func TestSequencer_Concurrent(t *testing.T) {
	seq := NewSequencer()
	const (
		goroutines = 10
		iterations = 1000
	)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				seq.Next()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*iterations), seq.Current())
}

func BenchmarkSequencer_Next(b *testing.B) {
	seq := NewSequencer()
	for b.Loop() {
		seq.Next()
	}
}

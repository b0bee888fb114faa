package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Sequencer выдает номера событий по схеме часов Лампорта.
// Номера одного экземпляра сервера строго возрастают; события других
// экземпляров, пришедшие через брокер, сдвигают счетчик вперед.
type Sequencer struct {
	nodeID  string
	counter int64
	mu      sync.Mutex
}

// NewSequencer создает счетчик со случайным идентификатором экземпляра
func NewSequencer() *Sequencer {
	return NewSequencerWithNodeID(uuid.New().String())
}

// NewSequencerWithNodeID создает счетчик с заданным идентификатором экземпляра
func NewSequencerWithNodeID(nodeID string) *Sequencer {
	return &Sequencer{nodeID: nodeID}
}

// Next возвращает номер для нового локального события
func (s *Sequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	return s.counter
}

// Observe учитывает номер полученного события: counter = max(counter, remote) + 1
func (s *Sequencer) Observe(remote int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if remote > s.counter {
		s.counter = remote
	}
	s.counter++
	return s.counter
}

// Current возвращает текущее значение счетчика без изменения
func (s *Sequencer) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counter
}

// NodeID идентификатор экземпляра сервера
func (s *Sequencer) NodeID() string {
	return s.nodeID
}

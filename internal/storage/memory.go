// internal/storage/memory.go
package storage

import (
	"sync"

	"github.com/farhanj21/ArduinoLocationTracker/internal/data"
)

const defaultCapacity = 100

// TrackStore keeps a bounded in-memory buffer of recent track points for the
// dashboard's recent-track polyline. Oldest points are evicted first.
type TrackStore struct {
	mu       sync.RWMutex
	buffer   []data.TrackPoint
	capacity int
}

func NewTrackStore(capacity int) *TrackStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &TrackStore{
		buffer:   make([]data.TrackPoint, 0, capacity),
		capacity: capacity,
	}
}

func (s *TrackStore) Add(point data.TrackPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffer) >= s.capacity {
		// Remove the oldest element
		s.buffer = s.buffer[1:]
	}
	s.buffer = append(s.buffer, point)
}

// Recent returns up to count newest points, oldest first. A non-positive or
// oversized count returns everything.
func (s *TrackStore) Recent(count int) []data.TrackPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > len(s.buffer) {
		count = len(s.buffer)
	}
	result := make([]data.TrackPoint, count)
	copy(result, s.buffer[len(s.buffer)-count:])
	return result
}

func (s *TrackStore) All() []data.TrackPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]data.TrackPoint, len(s.buffer))
	copy(result, s.buffer)
	return result
}

func (s *TrackStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffer)
}

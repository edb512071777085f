package storage

import (
	"testing"
	"time"

	"github.com/farhanj21/ArduinoLocationTracker/internal/data"
)

func point(lat float64) data.TrackPoint {
	return data.TrackPoint{Lat: lat, Lng: 67.0, Timestamp: time.Now()}
}

func TestAddAndRecent(t *testing.T) {
	s := NewTrackStore(5)

	for i := 0; i < 3; i++ {
		s.Add(point(float64(i)))
	}

	recent := s.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) = %d points, want 2", len(recent))
	}
	if recent[0].Lat != 1 || recent[1].Lat != 2 {
		t.Errorf("Recent(2) = %v, want newest two oldest-first", recent)
	}

	if got := len(s.Recent(0)); got != 3 {
		t.Errorf("Recent(0) = %d points, want all 3", got)
	}
	if got := len(s.Recent(99)); got != 3 {
		t.Errorf("Recent(99) = %d points, want all 3", got)
	}
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	s := NewTrackStore(3)

	for i := 0; i < 5; i++ {
		s.Add(point(float64(i)))
	}

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want capacity 3", len(all))
	}
	if all[0].Lat != 2 || all[2].Lat != 4 {
		t.Errorf("buffer = %v, want points 2..4", all)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s := NewTrackStore(3)
	s.Add(point(1))

	all := s.All()
	all[0].Lat = 99

	if s.All()[0].Lat != 1 {
		t.Error("All must return a copy, not the backing buffer")
	}
}

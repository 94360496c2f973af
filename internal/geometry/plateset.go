package geometry

import (
	"fmt"
	"sync"

	"github.com/san-kum/crtsim/internal/dynamo"
)

// PlateSet is the live, mutable plate configuration. Steering inputs write
// charges through SetCharge from any goroutine; the simulation reads a
// Snapshot once per tick, so a write lands on the next tick at the earliest.
type PlateSet struct {
	mu     sync.RWMutex
	plates []Plate
}

func NewPlateSet(plates ...Plate) (*PlateSet, error) {
	s := &PlateSet{plates: make([]Plate, 0, len(plates))}
	for _, p := range plates {
		if _, err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a plate and returns its index.
func (s *PlateSet) Add(p Plate) (int, error) {
	if err := p.Validate(); err != nil {
		return -1, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plates = append(s.plates, p)
	return len(s.plates) - 1, nil
}

func (s *PlateSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plates)
}

// Index looks a plate up by name.
func (s *PlateSet) Index(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, p := range s.plates {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (s *PlateSet) SetCharge(idx int, charge float64) error {
	if !dynamo.Finite(charge) {
		return &dynamo.ConfigError{Field: "charge", Value: charge, Reason: "must be finite"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.plates) {
		return fmt.Errorf("plate index %d out of range [0,%d)", idx, len(s.plates))
	}
	s.plates[idx].Charge = charge
	return nil
}

func (s *PlateSet) Charge(idx int) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx < 0 || idx >= len(s.plates) {
		return 0, fmt.Errorf("plate index %d out of range [0,%d)", idx, len(s.plates))
	}
	return s.plates[idx].Charge, nil
}

// Snapshot returns a copy of the plates in configured order.
func (s *PlateSet) Snapshot() []Plate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Plate, len(s.plates))
	copy(out, s.plates)
	return out
}

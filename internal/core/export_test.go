package core

import "time"

// SetClock replaces the service clock and id generator for tests.
func (s *Service) SetClock(now func() time.Time, newID func() string) {
	s.now = now
	s.importer.now = now
	if newID != nil {
		s.newID = newID
	}
}

package service

import "time"

// SetClock replaces the service clock in tests.
func (b *BookingService) SetClock(now func() time.Time) { b.now = now }

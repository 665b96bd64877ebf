package session

import "time"

// SetClock replaces the store's clock. Test-only.
func (m *MemoryStore) SetClock(now func() time.Time) { m.now = now }

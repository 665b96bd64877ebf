package receipt

import (
	"time"

	"github.com/busops/ticket-counter/internal/domain"
)

// RenderUncompressed renders with plain content streams so tests can search
// the page text.
func RenderUncompressed(s domain.Session, issuedAt time.Time) ([]byte, error) {
	return render(s, issuedAt, false)
}

package buyer

import (
	"context"
	"time"
)

// Buyer is a seen-buyers log entry, recorded on first contact. The core never
// reads it back; it exists for admin bookkeeping.
type Buyer struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

type Repository interface {
	// Upsert records the buyer if not already known. Re-recording an
	// existing buyer is a no-op.
	Upsert(ctx context.Context, b *Buyer) error
}

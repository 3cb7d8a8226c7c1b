package otp

import (
	"context"
	"time"
)

// Entry is the single pending code for a phone number. It is overwritten
// on every issuance and removed on successful verification or expiry.
type Entry struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Store holds at most one live entry per phone. Implementations do not
// need to be transactional across phones; the service serializes access
// per phone key.
type Store interface {
	Get(ctx context.Context, phone string) (Entry, bool, error)
	Set(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, phone string) error
}

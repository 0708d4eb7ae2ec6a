package eventlog

import (
	"context"
	"errors"
	"time"

	"tutorui/internal/genui"
)

// Record is one interaction event reported by a client, with whether the
// orchestrator answered it.
type Record struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"userId"`
	Event        genui.InteractionEvent `json:"event"`
	Acknowledged bool                   `json:"acknowledged"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// Store keeps the per-user interaction history. Recent returns the newest
// records first.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, userID string, limit int) ([]Record, error)
}

var ErrUserRequired = errors.New("user_id is required")

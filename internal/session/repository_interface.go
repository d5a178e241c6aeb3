package session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, s *Session) (*Session, error)
	GetByID(ctx context.Context, id int) (*Session, error)
	ListForUser(ctx context.Context, userID int) ([]Session, error)

	// Start atomically locks the learner's escrow: available -= cap,
	// locked += cap, status scheduled -> live. Exactly one concurrent
	// caller succeeds.
	Start(ctx context.Context, sessionID int) (*Session, error)

	// End atomically settles a live session: meters the final cost,
	// refunds the unused cap, credits the payee and flips the status to
	// completed. Running it twice on the same session fails with
	// ErrInvalidState.
	End(ctx context.Context, sessionID int) (*Settlement, error)

	// ListOverdueLive returns live sessions whose metered cost reached
	// the cap more than grace ago.
	ListOverdueLive(ctx context.Context, grace time.Duration) ([]int, error)
}

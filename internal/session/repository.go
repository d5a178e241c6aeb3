package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"macronata/internal/wallet"

	"github.com/jmoiron/sqlx"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("session is not in a valid state for this operation")
)

const sessionColumns = "id, learner_id, tutor_id, business_id, status, hourly_rate_cents, max_cost_cap_cents, scheduled_time, start_time, end_time, final_cost_cents, created_at"

type PostgresRepository struct {
	db *sqlx.DB

	// now is swappable so settlement math can be pinned in tests.
	now func() time.Time
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) Create(ctx context.Context, s *Session) (*Session, error) {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO sessions (learner_id, tutor_id, business_id, status, hourly_rate_cents, max_cost_cap_cents, scheduled_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+sessionColumns,
		s.LearnerID, s.TutorID, s.BusinessID, StatusScheduled, s.HourlyRateCents, s.MaxCostCapCents, s.ScheduledTime,
	).StructScan(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID int) ([]Session, error) {
	sessions := []Session{}
	err := r.db.SelectContext(ctx, &sessions,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE learner_id = $1 OR tutor_id = $1
		 ORDER BY scheduled_time DESC`,
		userID)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// lockSession takes the session row lock. All multi-row operations lock the
// session before any wallet so concurrent start/end calls on the same
// session serialize without deadlocking.
func lockSession(ctx context.Context, tx *sqlx.Tx, sessionID int) (*Session, error) {
	var s Session
	err := tx.QueryRowxContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`,
		sessionID,
	).StructScan(&s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PostgresRepository) Start(ctx context.Context, sessionID int) (*Session, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	s, err := lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.Status != StatusScheduled {
		return nil, ErrInvalidState
	}

	cap := s.MaxCostCapCents

	w, err := wallet.GetOrCreateForUpdate(ctx, tx, s.LearnerID)
	if err != nil {
		return nil, err
	}

	if w.AvailableCents < cap {
		return nil, wallet.ErrInsufficientFunds
	}

	if err := wallet.UpdateBalances(ctx, tx, w.ID, w.AvailableCents-cap, w.LockedCents+cap); err != nil {
		return nil, err
	}

	if err := wallet.AppendTransaction(ctx, tx, w.ID, -cap, wallet.TypeHold,
		fmt.Sprintf("Escrow hold for session %d", s.ID), &s.ID); err != nil {
		return nil, err
	}

	// The status guard in the WHERE clause is what makes concurrent starts
	// lose: only one transition out of scheduled ever commits.
	var startTime time.Time
	err = tx.QueryRowxContext(ctx,
		`UPDATE sessions
		 SET status = $1, start_time = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING start_time`,
		StatusLive, s.ID, StatusScheduled,
	).Scan(&startTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Status = StatusLive
	s.StartTime = &startTime
	return s, nil
}

func (r *PostgresRepository) End(ctx context.Context, sessionID int) (*Settlement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	s, err := lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.Status != StatusLive || s.StartTime == nil {
		return nil, ErrInvalidState
	}

	now := r.now()
	elapsed := now.Sub(*s.StartTime)
	cap := s.MaxCostCapCents

	finalCost := FinalCost(s.HourlyRateCents, elapsed, cap)
	refund := cap - finalCost

	payeeID := s.TutorID
	businessPayee := false
	if s.BusinessID != nil {
		payeeID = *s.BusinessID
		businessPayee = true
	}
	payeeCredit, commission := SplitCommission(finalCost, businessPayee)

	// Flip the status before moving any funds. This is the idempotence
	// guard: a second End on the same session matches zero rows and the
	// settlement below never runs twice.
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions
		 SET status = $1, end_time = $2, final_cost_cents = $3
		 WHERE id = $4 AND status = $5`,
		StatusCompleted, now, finalCost, s.ID, StatusLive,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidState
	}

	lw, err := wallet.GetOrCreateForUpdate(ctx, tx, s.LearnerID)
	if err != nil {
		return nil, err
	}
	if lw.LockedCents < cap {
		return nil, fmt.Errorf("wallet %d holds %d locked cents, session %d expects %d",
			lw.ID, lw.LockedCents, s.ID, cap)
	}

	if err := wallet.UpdateBalances(ctx, tx, lw.ID, lw.AvailableCents+refund, lw.LockedCents-cap); err != nil {
		return nil, err
	}

	if err := wallet.AppendTransaction(ctx, tx, lw.ID, cap, wallet.TypeRelease,
		fmt.Sprintf("Escrow released for session %d", s.ID), &s.ID); err != nil {
		return nil, err
	}

	if err := wallet.AppendTransaction(ctx, tx, lw.ID, -finalCost, wallet.TypePayment,
		fmt.Sprintf("Payment for session %d", s.ID), &s.ID); err != nil {
		return nil, err
	}

	pw, err := wallet.GetOrCreateForUpdate(ctx, tx, payeeID)
	if err != nil {
		return nil, err
	}

	if err := wallet.UpdateBalances(ctx, tx, pw.ID, pw.AvailableCents+payeeCredit, pw.LockedCents); err != nil {
		return nil, err
	}

	creditType := wallet.TypeEarning
	if businessPayee {
		creditType = wallet.TypeReceiving
	}
	if err := wallet.AppendTransaction(ctx, tx, pw.ID, payeeCredit, creditType,
		fmt.Sprintf("Earnings for session %d", s.ID), &s.ID); err != nil {
		return nil, err
	}

	// Commission is retained by not crediting it anywhere.

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Status = StatusCompleted
	s.EndTime = &now
	s.FinalCostCents = &finalCost

	return &Settlement{
		Session:     s,
		DurationSec: int64(elapsed / time.Second),
		FinalCost:   finalCost,
		Refund:      refund,
		PayeeCredit: payeeCredit,
		Commission:  commission,
	}, nil
}

func (r *PostgresRepository) ListOverdueLive(ctx context.Context, grace time.Duration) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT id
		 FROM sessions
		 WHERE status = $1
		   AND hourly_rate_cents > 0
		   AND EXTRACT(EPOCH FROM (NOW() - start_time)) >=
		       (max_cost_cap_cents::float8 * 3600 / hourly_rate_cents) + $2`,
		StatusLive, grace.Seconds())
	if err != nil {
		return nil, err
	}

	return ids, nil
}

package session

import "time"

// Session lifecycle is forward-only: scheduled -> live -> completed.
// There is no cancellation path; locked funds are only released by settlement.
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusCompleted = "completed"
)

type Session struct {
	ID              int        `db:"id" json:"id"`
	LearnerID       int        `db:"learner_id" json:"learner_id"`
	TutorID         int        `db:"tutor_id" json:"tutor_id"`
	BusinessID      *int       `db:"business_id" json:"business_id,omitempty"`
	Status          string     `db:"status" json:"status"`
	HourlyRateCents int64      `db:"hourly_rate_cents" json:"hourly_rate_cents"`
	MaxCostCapCents int64      `db:"max_cost_cap_cents" json:"max_cost_cap_cents"`
	ScheduledTime   time.Time  `db:"scheduled_time" json:"scheduled_time"`
	StartTime       *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime         *time.Time `db:"end_time" json:"end_time,omitempty"`
	FinalCostCents  *int64     `db:"final_cost_cents" json:"final_cost_cents,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Settlement summarizes a completed session's fund distribution.
// Refund + FinalCost always equals the session cap, and FinalCost always
// equals PayeeCredit + Commission.
type Settlement struct {
	Session     *Session `json:"session"`
	DurationSec int64    `json:"duration_sec"`
	FinalCost   int64    `json:"final_cost"`
	Refund      int64    `json:"refund"`
	PayeeCredit int64    `json:"payee_credit"`
	Commission  int64    `json:"commission"`
}

type BookRequest struct {
	TutorID         int       `json:"tutor_id" binding:"required"`
	ScheduledTime   time.Time `json:"scheduled_time" binding:"required"`
	AmountInCents   int64     `json:"amount_in_cents" binding:"required"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
	BusinessID      *int      `json:"business_id"`
}

type ControlRequest struct {
	SessionID int    `json:"session_id" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=start end"`
}

package session

import (
	"context"
	"errors"
	"time"

	"macronata/internal/logger"
	"macronata/internal/metrics"
	"macronata/internal/user"
)

var (
	ErrTutorNotFound  = errors.New("tutor not found")
	ErrSelfBooking    = errors.New("cannot book a session with yourself")
	ErrPastBooking    = errors.New("cannot book a session in the past")
	ErrNotLearner     = errors.New("only the session's learner can start it")
	ErrNotParticipant = errors.New("only the session's learner or tutor can end it")
)

// Notifier sends booking notifications. Satisfied by the email service.
type Notifier interface {
	SendSessionBooked(ctx context.Context, to, name, learnerName string, when time.Time) error
}

type Service interface {
	Book(ctx context.Context, learnerID int, req BookRequest) (*Session, error)
	Start(ctx context.Context, sessionID, requesterID int) (*Session, error)
	End(ctx context.Context, sessionID, requesterID int) (*Settlement, error)
	ListForUser(ctx context.Context, userID int) ([]Session, error)
	SettleOverdue(ctx context.Context, grace time.Duration) (int, error)
}

type service struct {
	repo     Repository
	userRepo user.Repository
	notifier Notifier
}

func NewService(repo Repository, userRepo user.Repository, notifier Notifier) Service {
	return &service{
		repo:     repo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

func (s *service) Book(ctx context.Context, learnerID int, req BookRequest) (*Session, error) {
	if req.TutorID == learnerID {
		return nil, ErrSelfBooking
	}

	tutor, err := s.userRepo.FindByID(ctx, req.TutorID)
	if err != nil || tutor.Role != user.RoleTutor {
		return nil, ErrTutorNotFound
	}

	if req.ScheduledTime.Before(time.Now()) {
		return nil, ErrPastBooking
	}

	// amount_in_cents is the spending cap. When no hourly rate is given
	// the cap buys exactly one hour.
	rate := req.HourlyRateCents
	if rate <= 0 {
		rate = req.AmountInCents
	}

	sess, err := s.repo.Create(ctx, &Session{
		LearnerID:       learnerID,
		TutorID:         req.TutorID,
		BusinessID:      req.BusinessID,
		HourlyRateCents: rate,
		MaxCostCapCents: req.AmountInCents,
		ScheduledTime:   req.ScheduledTime,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionBooked()

	learner, err := s.userRepo.FindByID(ctx, learnerID)
	if err == nil {
		if err := s.notifier.SendSessionBooked(ctx, tutor.Email, tutor.Name, learner.Name, sess.ScheduledTime); err != nil {
			logger.Errorf("Failed to queue booking notification for session %d: %v", sess.ID, err)
		}
	}

	return sess, nil
}

func (s *service) Start(ctx context.Context, sessionID, requesterID int) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.LearnerID != requesterID {
		return nil, ErrNotLearner
	}

	started, err := s.repo.Start(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionStarted(started.MaxCostCapCents)
	return started, nil
}

func (s *service) End(ctx context.Context, sessionID, requesterID int) (*Settlement, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.LearnerID != requesterID && sess.TutorID != requesterID {
		return nil, ErrNotParticipant
	}

	settlement, err := s.repo.End(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionSettled("client", settlement.Session.MaxCostCapCents)
	return settlement, nil
}

func (s *service) ListForUser(ctx context.Context, userID int) ([]Session, error) {
	return s.repo.ListForUser(ctx, userID)
}

// SettleOverdue force-settles live sessions whose metered cost reached the
// cap more than grace ago. Without it a session nobody ends would hold the
// learner's funds in escrow forever.
func (s *service) SettleOverdue(ctx context.Context, grace time.Duration) (int, error) {
	ids, err := s.repo.ListOverdueLive(ctx, grace)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, id := range ids {
		settlement, err := s.repo.End(ctx, id)
		if err != nil {
			// A client may have ended the session between the listing
			// and this settle; that is fine.
			if errors.Is(err, ErrInvalidState) {
				continue
			}
			logger.Errorf("Failed to settle overdue session %d: %v", id, err)
			continue
		}

		metrics.RecordSessionSettled("sweep", settlement.Session.MaxCostCapCents)
		settled++
	}

	return settled, nil
}

package session

import (
	"context"
	"testing"
	"time"

	"macronata/internal/user"
	"macronata/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, s *Session) (*Session, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int) (*Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) ListForUser(ctx context.Context, userID int) ([]Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Session), args.Error(1)
}

func (m *MockRepository) Start(ctx context.Context, sessionID int) (*Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) End(ctx context.Context, sessionID int) (*Settlement, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Settlement), args.Error(1)
}

func (m *MockRepository) ListOverdueLive(ctx context.Context, grace time.Duration) ([]int, error) {
	args := m.Called(ctx, grace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, name, email, passwordHash, role string) (*user.User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ListTutors(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendSessionBooked(ctx context.Context, to, name, learnerName string, when time.Time) error {
	args := m.Called(ctx, to, name, learnerName, when)
	return args.Error(0)
}

func newTestService() (*MockRepository, *MockUserRepository, *MockNotifier, Service) {
	repo := new(MockRepository)
	userRepo := new(MockUserRepository)
	notifier := new(MockNotifier)
	return repo, userRepo, notifier, NewService(repo, userRepo, notifier)
}

func TestBook_Success(t *testing.T) {
	repo, userRepo, notifier, svc := newTestService()
	ctx := context.Background()
	when := time.Now().Add(24 * time.Hour)

	userRepo.On("FindByID", ctx, 2).
		Return(&user.User{ID: 2, Name: "Thandi", Email: "thandi@example.com", Role: user.RoleTutor}, nil)
	userRepo.On("FindByID", ctx, 1).
		Return(&user.User{ID: 1, Name: "Sipho", Email: "sipho@example.com", Role: user.RoleLearner}, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(s *Session) bool {
		return s.LearnerID == 1 && s.TutorID == 2 &&
			s.MaxCostCapCents == 20000 && s.HourlyRateCents == 20000
	})).Return(&Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusScheduled,
		HourlyRateCents: 20000, MaxCostCapCents: 20000, ScheduledTime: when}, nil)
	notifier.On("SendSessionBooked", ctx, "thandi@example.com", "Thandi", "Sipho", when).
		Return(nil)

	sess, err := svc.Book(ctx, 1, BookRequest{TutorID: 2, ScheduledTime: when, AmountInCents: 20000})
	require.NoError(t, err)
	assert.Equal(t, 44, sess.ID)
	repo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestBook_RateDefaultsToCap(t *testing.T) {
	repo, userRepo, notifier, svc := newTestService()
	ctx := context.Background()
	when := time.Now().Add(time.Hour)

	userRepo.On("FindByID", ctx, 2).
		Return(&user.User{ID: 2, Name: "Thandi", Email: "thandi@example.com", Role: user.RoleTutor}, nil)
	userRepo.On("FindByID", ctx, 1).
		Return(&user.User{ID: 1, Name: "Sipho", Email: "sipho@example.com"}, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(s *Session) bool {
		// No explicit rate: the cap buys exactly one hour.
		return s.HourlyRateCents == 15000 && s.MaxCostCapCents == 15000
	})).Return(&Session{ID: 45, ScheduledTime: when}, nil)
	notifier.On("SendSessionBooked", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	_, err := svc.Book(ctx, 1, BookRequest{TutorID: 2, ScheduledTime: when, AmountInCents: 15000})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestBook_SelfBooking(t *testing.T) {
	_, _, _, svc := newTestService()

	_, err := svc.Book(context.Background(), 1, BookRequest{
		TutorID:       1,
		ScheduledTime: time.Now().Add(time.Hour),
		AmountInCents: 20000,
	})
	assert.ErrorIs(t, err, ErrSelfBooking)
}

func TestBook_TutorRoleRequired(t *testing.T) {
	repo, userRepo, _, svc := newTestService()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, 3).
		Return(&user.User{ID: 3, Role: user.RoleLearner}, nil)

	_, err := svc.Book(ctx, 1, BookRequest{
		TutorID:       3,
		ScheduledTime: time.Now().Add(time.Hour),
		AmountInCents: 20000,
	})
	assert.ErrorIs(t, err, ErrTutorNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBook_PastBooking(t *testing.T) {
	repo, userRepo, _, svc := newTestService()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, 2).
		Return(&user.User{ID: 2, Role: user.RoleTutor}, nil)

	_, err := svc.Book(ctx, 1, BookRequest{
		TutorID:       2,
		ScheduledTime: time.Now().Add(-time.Hour),
		AmountInCents: 20000,
	})
	assert.ErrorIs(t, err, ErrPastBooking)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBook_NotificationFailureDoesNotFailBooking(t *testing.T) {
	repo, userRepo, notifier, svc := newTestService()
	ctx := context.Background()
	when := time.Now().Add(time.Hour)

	userRepo.On("FindByID", ctx, 2).
		Return(&user.User{ID: 2, Name: "Thandi", Email: "thandi@example.com", Role: user.RoleTutor}, nil)
	userRepo.On("FindByID", ctx, 1).
		Return(&user.User{ID: 1, Name: "Sipho", Email: "sipho@example.com"}, nil)
	repo.On("Create", ctx, mock.Anything).
		Return(&Session{ID: 46, ScheduledTime: when}, nil)
	notifier.On("SendSessionBooked", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	sess, err := svc.Book(ctx, 1, BookRequest{TutorID: 2, ScheduledTime: when, AmountInCents: 20000})
	require.NoError(t, err)
	assert.Equal(t, 46, sess.ID)
}

func TestStartService_OnlyLearnerMayStart(t *testing.T) {
	repo, _, _, svc := newTestService()
	ctx := context.Background()

	repo.On("GetByID", ctx, 44).
		Return(&Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusScheduled}, nil)

	_, err := svc.Start(ctx, 44, 2)
	assert.ErrorIs(t, err, ErrNotLearner)
	repo.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestStartService_Success(t *testing.T) {
	repo, _, _, svc := newTestService()
	ctx := context.Background()
	now := time.Now()

	repo.On("GetByID", ctx, 44).
		Return(&Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusScheduled, MaxCostCapCents: 20000}, nil)
	repo.On("Start", ctx, 44).
		Return(&Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusLive, MaxCostCapCents: 20000, StartTime: &now}, nil)

	sess, err := svc.Start(ctx, 44, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusLive, sess.Status)
	repo.AssertExpectations(t)
}

func TestStartService_InsufficientFundsPassesThrough(t *testing.T) {
	repo, _, _, svc := newTestService()
	ctx := context.Background()

	repo.On("GetByID", ctx, 44).
		Return(&Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusScheduled}, nil)
	repo.On("Start", ctx, 44).
		Return(nil, wallet.ErrInsufficientFunds)

	_, err := svc.Start(ctx, 44, 1)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
}

func TestEndService_ParticipantsOnly(t *testing.T) {
	repo, _, _, svc := newTestService()
	ctx := context.Background()

	repo.On("GetByID", ctx, 44).
		Return(&Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusLive}, nil)

	_, err := svc.End(ctx, 44, 7)
	assert.ErrorIs(t, err, ErrNotParticipant)
	repo.AssertNotCalled(t, "End", mock.Anything, mock.Anything)
}

func TestEndService_TutorMayEnd(t *testing.T) {
	repo, _, _, svc := newTestService()
	ctx := context.Background()

	sess := &Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusCompleted, MaxCostCapCents: 20000}
	repo.On("GetByID", ctx, 44).
		Return(&Session{ID: 44, LearnerID: 1, TutorID: 2, Status: StatusLive, MaxCostCapCents: 20000}, nil)
	repo.On("End", ctx, 44).
		Return(&Settlement{Session: sess, FinalCost: 10000, Refund: 10000, PayeeCredit: 8500, Commission: 1500}, nil)

	settlement, err := svc.End(ctx, 44, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), settlement.FinalCost)
	assert.Equal(t, int64(10000), settlement.Refund)
	repo.AssertExpectations(t)
}

func TestSettleOverdue(t *testing.T) {
	repo, _, _, svc := newTestService()
	ctx := context.Background()
	grace := 15 * time.Minute

	sess := &Session{ID: 44, Status: StatusCompleted, MaxCostCapCents: 20000}
	repo.On("ListOverdueLive", ctx, grace).Return([]int{44, 45, 46}, nil)
	repo.On("End", ctx, 44).
		Return(&Settlement{Session: sess, FinalCost: 20000, PayeeCredit: 17000, Commission: 3000}, nil)
	// 45 was ended by a client between listing and settling.
	repo.On("End", ctx, 45).Return(nil, ErrInvalidState)
	repo.On("End", ctx, 46).Return(nil, assert.AnError)

	settled, err := svc.SettleOverdue(ctx, grace)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	repo.AssertExpectations(t)
}

func TestSettleOverdue_ListError(t *testing.T) {
	repo, _, _, svc := newTestService()
	ctx := context.Background()

	repo.On("ListOverdueLive", ctx, 15*time.Minute).Return(nil, assert.AnError)

	_, err := svc.SettleOverdue(ctx, 15*time.Minute)
	assert.Error(t, err)
}

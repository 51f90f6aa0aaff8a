package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/domain"
	habitDomain "github.com/myfocus-app/service-billing/internal/domain/habit"
)

// StartHabitRequest holds the goal selection for a new habit.
type StartHabitRequest struct {
	Category string `json:"category" binding:"required"`
}

// HabitDTO is the API representation of the habit snapshot, annotated with
// the wall-clock gating the client needs.
type HabitDTO struct {
	Habit          *habitDomain.Habit `json:"habit"`
	DaysSinceStart int                `json:"daysSinceStart"`
	Finished       bool               `json:"finished"`
}

// HabitService drives the progression engine against the snapshot store.
// The engine itself is pure; this service supplies "now" and persistence.
type HabitService struct {
	store  habitDomain.SnapshotStore
	logger *zap.Logger
	now    func() time.Time
}

// NewHabitService creates a new HabitService.
func NewHabitService(store habitDomain.SnapshotStore, logger *zap.Logger) *HabitService {
	return &HabitService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListGoals returns the selectable goal catalog.
func (s *HabitService) ListGoals() []habitDomain.Goal {
	return habitDomain.AvailableGoals()
}

// StartHabit creates a habit from a goal. A user has at most one habit; an
// existing one must be reset first.
func (s *HabitService) StartHabit(ctx context.Context, userID uuid.UUID, req StartHabitRequest) (*HabitDTO, error) {
	goal, ok := habitDomain.GoalFor(habitDomain.Category(req.Category))
	if !ok {
		return nil, domain.NewValidationError("unknown goal category: " + req.Category)
	}

	if _, err := s.store.Load(ctx, userID); err == nil {
		return nil, domain.NewConflictError("an active habit already exists, reset it first")
	} else if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, err
	}

	h := habitDomain.NewHabit(goal, s.now())
	if err := s.store.Save(ctx, userID, h); err != nil {
		return nil, err
	}

	s.logger.Info("habit started",
		zap.String("user_id", userID.String()),
		zap.String("category", string(goal.Category)),
	)
	return s.toDTO(h), nil
}

// GetHabit returns the user's habit snapshot.
func (s *HabitService) GetHabit(ctx context.Context, userID uuid.UUID) (*HabitDTO, error) {
	h, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(h), nil
}

// ToggleStep toggles the step for the given day and persists the full
// snapshot. A not-yet-available day is rejected with no mutation saved.
func (s *HabitService) ToggleStep(ctx context.Context, userID uuid.UUID, day int) (*HabitDTO, error) {
	h, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := h.ToggleStep(day, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, userID, h); err != nil {
		return nil, err
	}

	s.logger.Debug("habit step toggled",
		zap.String("user_id", userID.String()),
		zap.Int("day", day),
		zap.Int("streak", h.Streak),
	)
	return s.toDTO(h), nil
}

// ResetHabit clears the user's habit snapshot.
func (s *HabitService) ResetHabit(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("habit reset", zap.String("user_id", userID.String()))
	return nil
}

func (s *HabitService) toDTO(h *habitDomain.Habit) *HabitDTO {
	return &HabitDTO{
		Habit:          h,
		DaysSinceStart: h.DaysSinceStart(s.now()),
		Finished:       h.IsFinished(),
	}
}

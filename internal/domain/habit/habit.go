package habit

import (
	"time"

	"github.com/google/uuid"

	"github.com/myfocus-app/service-billing/internal/domain"
)

// MicroStep is one daily actionable unit within a 90-day program.
type MicroStep struct {
	Day         int        `json:"day"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Habit is the full per-user habit snapshot. It is persisted whole on every
// mutation and rehydrated on load, so unlike the billing aggregates it is a
// plain serializable document. Timestamps serialize as RFC3339.
type Habit struct {
	ID         string      `json:"id"`
	Category   Category    `json:"category"`
	Title      string      `json:"title"`
	Icon       string      `json:"icon"`
	Gradient   string      `json:"gradient"`
	CurrentDay int         `json:"currentDay"`
	Streak     int         `json:"streak"`
	MicroSteps []MicroStep `json:"microSteps"`
	StartDate  time.Time   `json:"startDate"`
	IsActive   bool        `json:"isActive"`
}

// NewHabit starts a habit from a goal at the given start time.
func NewHabit(goal Goal, start time.Time) *Habit {
	return &Habit{
		ID:         uuid.New().String(),
		Category:   goal.Category,
		Title:      goal.Title,
		Icon:       goal.Icon,
		Gradient:   goal.Gradient,
		CurrentDay: 1,
		Streak:     0,
		MicroSteps: MicroStepsFor(goal.Category, goal.TotalDays),
		StartDate:  start,
		IsActive:   true,
	}
}

// DaysSinceStart counts whole elapsed days plus one, so the start day is day 1.
func (h *Habit) DaysSinceStart(now time.Time) int {
	return int(now.Sub(h.StartDate).Hours()/24) + 1
}

// IsStepAvailable reports whether the step for day d is unlocked at now.
func (h *Habit) IsStepAvailable(day int, now time.Time) bool {
	return day <= h.DaysSinceStart(now)
}

// CompletedCount counts completed micro-steps.
func (h *Habit) CompletedCount() int {
	n := 0
	for _, s := range h.MicroSteps {
		if s.Completed {
			n++
		}
	}
	return n
}

// IsFinished reports whether every micro-step is completed.
func (h *Habit) IsFinished() bool {
	return len(h.MicroSteps) > 0 && h.CompletedCount() == len(h.MicroSteps)
}

// ToggleStep flips the completion of the step for the given day. Toggling a
// day that is not yet unlocked is rejected with no mutation. After a toggle
// the streak and current-day counters are recomputed: streak is the completed
// count, and the current day is completion-driven, capped at the program length.
func (h *Habit) ToggleStep(day int, now time.Time) error {
	idx := -1
	for i, s := range h.MicroSteps {
		if s.Day == day {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.NewValidationError("unknown step day")
	}
	if !h.IsStepAvailable(day, now) {
		return domain.NewRejectionError("too early: this step is not available yet")
	}

	step := &h.MicroSteps[idx]
	step.Completed = !step.Completed
	if step.Completed {
		t := now
		step.CompletedAt = &t
	} else {
		step.CompletedAt = nil
	}

	completed := h.CompletedCount()
	h.Streak = completed
	h.CurrentDay = completed + 1
	if h.CurrentDay > len(h.MicroSteps) {
		h.CurrentDay = len(h.MicroSteps)
	}
	return nil
}

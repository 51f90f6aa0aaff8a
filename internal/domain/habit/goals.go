package habit

import "fmt"

// Category names one of the fixed habit programs.
type Category string

const (
	CategoryHealth      Category = "health"
	CategoryFitness     Category = "fitness"
	CategorySleep       Category = "sleep"
	CategoryMindfulness Category = "mindfulness"
	CategoryLearning    Category = "learning"
)

// Goal describes a selectable 90-day habit program.
type Goal struct {
	Category  Category `json:"category"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle"`
	Icon      string   `json:"icon"`
	Gradient  string   `json:"gradient"`
	TotalDays int      `json:"totalDays"`
}

// ProgramLength is the fixed length of every habit program.
const ProgramLength = 90

// AvailableGoals returns the goal catalog.
func AvailableGoals() []Goal {
	return []Goal{
		{Category: CategoryHealth, Title: "Drink more water", Subtitle: "Build a daily hydration habit", Icon: "droplet", Gradient: "blue", TotalDays: ProgramLength},
		{Category: CategoryFitness, Title: "Move every day", Subtitle: "From five minutes to a real workout", Icon: "dumbbell", Gradient: "orange", TotalDays: ProgramLength},
		{Category: CategorySleep, Title: "Sleep on schedule", Subtitle: "A consistent wind-down and wake-up", Icon: "moon", Gradient: "indigo", TotalDays: ProgramLength},
		{Category: CategoryMindfulness, Title: "Daily mindfulness", Subtitle: "Short moments of calm, every day", Icon: "lotus", Gradient: "green", TotalDays: ProgramLength},
		{Category: CategoryLearning, Title: "Learn a little daily", Subtitle: "Reading and practice in micro-doses", Icon: "book", Gradient: "purple", TotalDays: ProgramLength},
	}
}

// GoalFor returns the catalog entry for a category.
func GoalFor(category Category) (Goal, bool) {
	for _, g := range AvailableGoals() {
		if g.Category == category {
			return g, true
		}
	}
	return Goal{}, false
}

// stepActions are the rotating daily actions per category. The program cycles
// through them while the framing description tracks the phase of the program.
var stepActions = map[Category][]string{
	CategoryHealth: {
		"Drink a glass of water right after waking up",
		"Carry a water bottle with you all day",
		"Swap one sugary drink for water",
		"Drink a glass of water before each meal",
		"Finish a full litre before midday",
	},
	CategoryFitness: {
		"Do a five-minute stretch",
		"Take a brisk ten-minute walk",
		"Do one set of squats and push-ups",
		"Take the stairs every time today",
		"Follow a short workout video",
	},
	CategorySleep: {
		"Put screens away 30 minutes before bed",
		"Go to bed at your chosen time",
		"Get up without snoozing the alarm",
		"Skip caffeine after 2pm",
		"Dim the lights an hour before bed",
	},
	CategoryMindfulness: {
		"Take ten slow, deep breaths",
		"Sit quietly for three minutes",
		"Write down one thing you are grateful for",
		"Eat one meal without a screen",
		"Do a short body-scan before sleep",
	},
	CategoryLearning: {
		"Read five pages",
		"Watch one short lesson and take a note",
		"Review yesterday's notes",
		"Explain something you learned to someone",
		"Practice the hardest thing from this week",
	},
}

func phaseFor(day int) string {
	switch {
	case day <= 30:
		return "Getting started: keep it tiny and unmissable."
	case day <= 60:
		return "Building momentum: the action should feel routine now."
	default:
		return "Locking it in: this is who you are now."
	}
}

// MicroStepsFor generates the ordered micro-step program for a category.
func MicroStepsFor(category Category, totalDays int) []MicroStep {
	actions, ok := stepActions[category]
	if !ok || totalDays <= 0 {
		return nil
	}

	steps := make([]MicroStep, totalDays)
	for day := 1; day <= totalDays; day++ {
		steps[day-1] = MicroStep{
			Day:         day,
			Title:       fmt.Sprintf("Day %d: %s", day, actions[(day-1)%len(actions)]),
			Description: phaseFor(day),
		}
	}
	return steps
}

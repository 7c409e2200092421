// Package habits tracks the daily habits of a client: targets, completion,
// streaks and the milestones worth celebrating.
package habits

import (
	"time"
)

const DateLayout = "2006-01-02"

type Habit struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Unit     string  `json:"unit"`
	Target   float64 `json:"target"`
	Editable bool    `json:"editable"`
}

const (
	Water       = "water"
	Sleep       = "sleep"
	Steps       = "steps"
	Workout     = "workout"
	HealthyMeal = "healthy_meal"
)

const DefaultWeeklyWorkoutTarget = 3

func Defaults() []Habit {
	return []Habit{
		{ID: Water, Label: "Acqua", Unit: "bicchieri", Target: 8, Editable: true},
		{ID: Sleep, Label: "Sonno", Unit: "ore", Target: 7, Editable: true},
		{ID: Steps, Label: "Passi", Unit: "passi", Target: 10000, Editable: true},
		{ID: Workout, Label: "Allenamento", Unit: "sessione", Target: 1, Editable: false},
		{ID: HealthyMeal, Label: "Pasti sani", Unit: "pasti", Target: 3, Editable: true},
	}
}

func IsKnown(id string) bool {
	for _, h := range Defaults() {
		if h.ID == id {
			return true
		}
	}
	return false
}

// Resolve applies a client's target overrides. Non-editable habits and
// non-positive values are ignored.
func Resolve(overrides map[string]float64) []Habit {
	habits := Defaults()
	for i, h := range habits {
		if v, ok := overrides[h.ID]; ok && h.Editable && v > 0 {
			habits[i].Target = v
		}
	}
	return habits
}

// DayLog maps habit id to the value logged for one day.
type DayLog map[string]float64

// Completion is the share of habits that met their target, from 0 to 1.
func Completion(habits []Habit, log DayLog) float64 {
	if len(habits) == 0 {
		return 0
	}
	met := 0
	for _, h := range habits {
		if log[h.ID] >= h.Target {
			met++
		}
	}
	return float64(met) / float64(len(habits))
}

func complete(habits []Habit, log DayLog) bool {
	return len(habits) > 0 && Completion(habits, log) == 1
}

// Streak counts consecutive complete days. It may end today or yesterday,
// so an unfinished today does not break it.
func Streak(habits []Habit, logs map[string]DayLog, today time.Time) int {
	day := dateOnly(today)
	if !complete(habits, logs[day.Format(DateLayout)]) {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for complete(habits, logs[day.Format(DateLayout)]) {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// WeekStart returns the Monday of t's week at midnight.
func WeekStart(t time.Time) time.Time {
	d := dateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeeklyWorkouts counts the days of today's week with a logged workout.
func WeeklyWorkouts(logs map[string]DayLog, today time.Time) int {
	start := WeekStart(today)
	count := 0
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		if d.After(today) {
			break
		}
		if logs[d.Format(DateLayout)][Workout] >= 1 {
			count++
		}
	}
	return count
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

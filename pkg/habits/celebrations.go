package habits

import "fmt"

var StreakMilestones = []int{3, 7, 14, 30, 60, 100}

type Celebration struct {
	Kind    string `json:"kind"`
	Value   int    `json:"value"`
	Message string `json:"message"`
}

// Celebrations lists the milestones reached so far. The client app shows
// the ones it has not shown yet.
func Celebrations(streak, checkCount, weeklyWorkouts, weeklyTarget int) []Celebration {
	var out []Celebration
	for _, m := range StreakMilestones {
		if streak >= m {
			out = append(out, Celebration{
				Kind:    "streak",
				Value:   m,
				Message: fmt.Sprintf("%d giorni di fila! Continua così", m),
			})
		}
	}
	if checkCount >= 1 {
		out = append(out, Celebration{Kind: "first_check", Value: 1, Message: "Primo check-in completato"})
	}
	if weeklyTarget > 0 && weeklyWorkouts >= weeklyTarget {
		out = append(out, Celebration{
			Kind:    "weekly_workouts",
			Value:   weeklyTarget,
			Message: "Obiettivo allenamenti settimanale raggiunto",
		})
	}
	return out
}

package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptmanager_backend/internal/middleware"
	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/habits"
)

type habitBoard struct {
	Date           string               `json:"date"`
	Habits         []habits.Habit       `json:"habits"`
	Log            habits.DayLog        `json:"log"`
	Completion     float64              `json:"completion"`
	Streak         int                  `json:"streak"`
	WeeklyWorkouts int                  `json:"weekly_workouts"`
	WeekStart      string               `json:"week_start"`
	Celebrations   []habits.Celebration `json:"celebrations"`
}

func celebrationKinds(list []habits.Celebration) []string {
	var out []string
	for _, c := range list {
		out = append(out, fmt.Sprintf("%s:%d", c.Kind, c.Value))
	}
	return out
}

// fullDay logs every default habit at its target.
func fullDay(t *testing.T, env *testEnv, path, date string) {
	t.Helper()
	for _, h := range habits.Defaults() {
		status, body := env.do(t, http.MethodPost, path, fiber.Map{"date": date, "habit_id": h.ID, "value": h.Target})
		require.Equal(t, http.StatusOK, status, string(body))
	}
}

func TestHabitStreaksAndCelebrations(t *testing.T) {
	env := newTestEnv(t)
	sara, saraUser := env.clientUser(t, "Sara", "sara@mail.it", false)
	client := as(env.claims(saraUser))
	env.app.Get("/clients/:id/habits", client, middleware.CheckClientAccess(), GetHabits)
	env.app.Post("/clients/:id/habits/log", client, middleware.CheckClientAccess(), LogHabit)
	env.app.Put("/clients/:id/habits/targets", as(env.claims(env.admin)), middleware.CheckClientAccess(), UpdateHabitTargets)
	logPath := fmt.Sprintf("/clients/%d/habits/log", sara.ID)
	board := func(date string) habitBoard {
		status, body := env.do(t, http.MethodGet, fmt.Sprintf("/clients/%d/habits?date=%s", sara.ID, date), nil)
		require.Equal(t, http.StatusOK, status, string(body))
		return decode[habitBoard](t, body)
	}

	for _, body := range []fiber.Map{
		{"date": "2024-05-15", "habit_id": "yoga", "value": 1},
		{"date": "2024-05-15", "habit_id": habits.Water, "value": -1},
		{"date": "15/05/2024", "habit_id": habits.Water, "value": 1},
	} {
		status, _ := env.do(t, http.MethodPost, logPath, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
	}

	// Monday to Wednesday, all habits met.
	for _, d := range []string{"2024-05-13", "2024-05-14", "2024-05-15"} {
		fullDay(t, env, logPath, d)
	}

	b := board("2024-05-15")
	assert.Equal(t, "2024-05-13", b.WeekStart)
	assert.Equal(t, 1.0, b.Completion)
	assert.Equal(t, 3, b.Streak)
	assert.Equal(t, 3, b.WeeklyWorkouts)
	assert.Equal(t, []string{"streak:3", "weekly_workouts:3"}, celebrationKinds(b.Celebrations))

	// Logging again replaces the value of the day.
	status, _ := env.do(t, http.MethodPost, logPath, fiber.Map{"date": "2024-05-15", "habit_id": habits.Water, "value": 2})
	require.Equal(t, http.StatusOK, status)
	var rows int64
	env.db.Model(&model.HabitLog{}).Where("client_id = ? AND date = ? AND habit_id = ?", sara.ID, "2024-05-15", habits.Water).Count(&rows)
	assert.EqualValues(t, 1, rows)

	b = board("2024-05-15")
	assert.Equal(t, 2.0, b.Log[habits.Water])
	assert.Equal(t, 0.8, b.Completion)
	assert.Equal(t, 2, b.Streak, "an unfinished today keeps yesterday's streak")

	b = board("2024-05-17")
	assert.Zero(t, b.Streak, "a missed day breaks the streak")
	assert.Equal(t, 3, b.WeeklyWorkouts)

	// Raising a target is applied to the board; workouts stay fixed.
	status, body := env.do(t, http.MethodPut, fmt.Sprintf("/clients/%d/habits/targets", sara.ID), fiber.Map{
		"targets": fiber.Map{habits.Steps: 12000, habits.Workout: 2}, "weekly_workout_target": 4,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	b = board("2024-05-14")
	for _, h := range b.Habits {
		switch h.ID {
		case habits.Steps:
			assert.Equal(t, 12000.0, h.Target)
		case habits.Workout:
			assert.Equal(t, 1.0, h.Target)
		}
	}
	assert.Zero(t, b.Streak)
	assert.Empty(t, celebrationKinds(b.Celebrations))

	require.NoError(t, env.db.Create(&model.Check{TenantID: env.tenant.ID, ClientID: sara.ID}).Error)
	assert.Contains(t, celebrationKinds(board("2024-05-14").Celebrations), "first_check:1")
}

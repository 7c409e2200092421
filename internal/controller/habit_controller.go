package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/habits"
)

// streakLookback bounds how far back logs are loaded for the streak.
const streakLookback = 120

type HabitLogInput struct {
	Date    string  `json:"date"`
	HabitID string  `json:"habit_id"`
	Value   float64 `json:"value"`
}

func loadHabitLogs(clientID uint, from, to time.Time) (map[string]habits.DayLog, error) {
	var rows []model.HabitLog
	err := database.GetDB().
		Where("client_id = ? AND date >= ? AND date <= ?", clientID,
			from.Format(habits.DateLayout), to.Format(habits.DateLayout)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	logs := map[string]habits.DayLog{}
	for _, r := range rows {
		if logs[r.Date] == nil {
			logs[r.Date] = habits.DayLog{}
		}
		logs[r.Date][r.HabitID] = r.Value
	}
	return logs, nil
}

// GetHabits returns the client's habits with the day's log, completion,
// streak, weekly workouts and reached celebrations.
func GetHabits(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	today := time.Now()
	if d := c.Query("date"); d != "" {
		t, err := time.ParseInLocation(habits.DateLayout, d, time.Local)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid date",
			})
		}
		today = t
	}

	logs, err := loadHabitLogs(client.ID, today.AddDate(0, 0, -streakLookback), today)
	if err != nil {
		return serverError(c, "Could not fetch habit logs", err)
	}

	list := client.Habits()
	dayLog := logs[today.Format(habits.DateLayout)]
	if dayLog == nil {
		dayLog = habits.DayLog{}
	}
	streak := habits.Streak(list, logs, today)
	weekly := habits.WeeklyWorkouts(logs, today)

	var checkCount int64
	database.GetDB().Model(&model.Check{}).Where("client_id = ?", client.ID).Count(&checkCount)

	return c.JSON(fiber.Map{
		"date":                  today.Format(habits.DateLayout),
		"habits":                list,
		"log":                   dayLog,
		"completion":            habits.Completion(list, dayLog),
		"streak":                streak,
		"weekly_workouts":       weekly,
		"weekly_workout_target": client.WorkoutTarget(),
		"week_start":            habits.WeekStart(today).Format(habits.DateLayout),
		"celebrations":          habits.Celebrations(streak, int(checkCount), weekly, client.WorkoutTarget()),
	})
}

// LogHabit upserts the value of one habit for one day.
func LogHabit(c *fiber.Ctx) error {
	claims := claimsOf(c)
	client := c.Locals("client").(*model.Client)

	input := new(HabitLogInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if !habits.IsKnown(input.HabitID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown habit",
		})
	}
	if input.Value < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Value cannot be negative",
		})
	}
	if input.Date == "" {
		input.Date = time.Now().Format(habits.DateLayout)
	}
	if _, err := time.Parse(habits.DateLayout, input.Date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date",
		})
	}

	entry := model.HabitLog{
		TenantID: claims.TenantID,
		ClientID: client.ID,
		Date:     input.Date,
		HabitID:  input.HabitID,
		Value:    input.Value,
	}
	err := database.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "date"}, {Name: "habit_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return serverError(c, "Could not save habit", err)
	}

	return c.JSON(entry)
}

func UpdateHabitTargets(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	var input struct {
		Targets             map[string]float64 `json:"targets"`
		WeeklyWorkoutTarget int                `json:"weekly_workout_target"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	for id := range input.Targets {
		if !habits.IsKnown(id) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown habit: " + id,
			})
		}
	}

	updates := map[string]interface{}{}
	if input.Targets != nil {
		client.SetHabitTargets(input.Targets)
		updates["habit_targets"] = client.HabitTargets
	}
	if input.WeeklyWorkoutTarget > 0 {
		client.WeeklyWorkoutTarget = input.WeeklyWorkoutTarget
		updates["weekly_workout_target"] = input.WeeklyWorkoutTarget
	}
	if len(updates) > 0 {
		if err := database.GetDB().Model(client).Updates(updates).Error; err != nil {
			return serverError(c, "Could not update habit targets", err)
		}
	}

	return c.JSON(fiber.Map{
		"habits":                client.Habits(),
		"weekly_workout_target": client.WorkoutTarget(),
	})
}

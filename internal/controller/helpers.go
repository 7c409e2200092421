package controller

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"ptmanager_backend/pkg/errtrack"
	"ptmanager_backend/pkg/money"
	"ptmanager_backend/pkg/utils/jwt"
)

// serverError logs err, reports it and answers 500 with msg.
func serverError(c *fiber.Ctx, msg string, err error) error {
	log.Printf("%s %s: %s: %v", c.Method(), c.Path(), msg, err)
	errtrack.CaptureError(fmt.Errorf("%s: %w", msg, err), map[string]string{
		"route": c.Route().Path,
	})
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
	})
}

func claimsOf(c *fiber.Ctx) *jwt.Claims {
	return c.Locals("user").(*jwt.Claims)
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func queryInt(c *fiber.Ctx, key string, def, max int) int {
	v := c.QueryInt(key, def)
	if v <= 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// Amount decodes a euro amount sent as a JSON number or as a string in
// Italian or English notation.
type Amount money.Cents

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	c, err := money.Parse(s)
	if err != nil {
		return err
	}
	*a = Amount(c)
	return nil
}

func (a Amount) Cents() money.Cents { return money.Cents(a) }

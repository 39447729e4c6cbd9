package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const DateLayout = "2006-01-02"

// GetIDParam reads a positive numeric path parameter.
func GetIDParam(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New("ID not found")
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || id == 0 {
		return 0, errors.New("Invalid ID")
	}

	return uint(id), nil
}

// GetUintQuery reads an optional positive numeric query parameter.
func GetUintQuery(ctx *gin.Context, name string) (*uint, error) {
	raw := strings.TrimSpace(ctx.Query(name))

	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || value == 0 {
		return nil, errors.New("Invalid " + name)
	}

	id := uint(value)
	return &id, nil
}

// GetBoolQuery reads an optional true/false query parameter.
func GetBoolQuery(ctx *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(ctx.Query(name))

	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseBool(raw)

	if err != nil {
		return nil, errors.New("Invalid " + name)
	}

	return &value, nil
}

// GetDateQuery reads an optional YYYY-MM-DD query parameter.
func GetDateQuery(ctx *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(ctx.Query(name))

	if raw == "" {
		return nil, nil
	}

	date, err := ParseDate(raw)

	if err != nil {
		return nil, errors.New("Invalid " + name + ", expected YYYY-MM-DD")
	}

	return &date, nil
}

// ParseDate accepts a calendar date or an RFC3339 timestamp and returns UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	if date, err := time.Parse(DateLayout, raw); err == nil {
		return date.UTC(), nil
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}

	return TruncateDay(ts), nil
}

// TruncateDay drops the clock part of t, keeping its calendar date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns [first day of t's month, first day of next month) and the YYYY-MM key.
// The month is the UTC calendar month whatever t's location.
func MonthWindow(t time.Time) (time.Time, time.Time, string) {
	y, m, _ := t.UTC().Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), start.Format("2006-01")
}

// RoundMoney rounds an amount to cents.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

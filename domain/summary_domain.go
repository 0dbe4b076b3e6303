package domain

import (
	"errors"
	"time"
)

var (
	ErrNoEntriesForDay    = errors.New("no completed entries for the requested day")
	ErrInvalidSummaryDate = errors.New("date must be formatted as YYYY-MM-DD")
)

type (
	DailySummaryRequest struct {
		Date       string `params:"date" validate:"required,datetime=2006-01-02"`
		TimeZoneID string `query:"tz" validate:"omitempty,timezone"`
	}

	DailySummary struct {
		Date            string    `json:"date"`
		TimeZoneID      string    `json:"timeZoneId"`
		EntryCount      int       `json:"entryCount"`
		TotalCalories   *float64  `json:"totalCalories,omitempty"`
		Highlights      []string  `json:"highlights"`
		Recommendations []string  `json:"recommendations"`
		Summary         string    `json:"summary"`
		Provider        string    `json:"provider"`
		Model           string    `json:"model"`
		GeneratedAt     time.Time `json:"generatedAt"`
	}
)

package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/entities"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/analysis"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/entry"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
)

// Entries are stored in UTC; a local day can start up to 14h either side.
const zoneSlack = 14 * time.Hour

type (
	SummaryService interface {
		GenerateDailySummary(ctx context.Context, date string, timeZoneID string) (domain.DailySummary, error)
	}

	summaryService struct {
		entries   entry.EntryRepository
		analyses  analysis.AnalysisRepository
		llm       llm.Resolver
		deviceLoc *time.Location
		logger    *slog.Logger
		now       func() time.Time
	}

	summaryReply struct {
		Summary         string   `json:"summary"`
		TotalCalories   *float64 `json:"totalCalories"`
		Highlights      []string `json:"highlights"`
		Recommendations []string `json:"recommendations"`
	}
)

func NewSummaryService(entries entry.EntryRepository, analyses analysis.AnalysisRepository, resolver llm.Resolver, deviceLoc *time.Location, logger *slog.Logger) SummaryService {
	if deviceLoc == nil {
		deviceLoc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &summaryService{
		entries:   entries,
		analyses:  analyses,
		llm:       resolver,
		deviceLoc: deviceLoc,
		logger:    logger,
		now:       time.Now,
	}
}

// GenerateDailySummary summarises the Completed entries whose local capture
// date, in each entry's own zone, is date.
func (s *summaryService) GenerateDailySummary(ctx context.Context, date string, timeZoneID string) (domain.DailySummary, error) {
	loc := s.deviceLoc
	if timeZoneID != "" {
		parsed, err := time.LoadLocation(timeZoneID)
		if err != nil {
			return domain.DailySummary{}, fmt.Errorf("load time zone %q: %w", timeZoneID, err)
		}
		loc = parsed
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return domain.DailySummary{}, domain.ErrInvalidSummaryDate
	}

	candidates, err := s.entries.ListCapturedBetween(ctx, day.Add(-zoneSlack), day.AddDate(0, 0, 1).Add(zoneSlack))
	if err != nil {
		return domain.DailySummary{}, err
	}

	var (
		insights      []string
		totalCalories float64
		haveCalories  bool
	)
	for _, e := range candidates {
		if e.Status != entities.StatusCompleted || e.LocalCapturedAt().Format("2006-01-02") != date {
			continue
		}
		latest, err := s.analyses.GetLatestForEntry(ctx, e.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return domain.DailySummary{}, err
		}
		insights = append(insights, latest.InsightsJSON)

		if calories, ok := mealCalories(latest.InsightsJSON); ok {
			totalCalories += calories
			haveCalories = true
		}
	}
	if len(insights) == 0 {
		return domain.DailySummary{}, domain.ErrNoEntriesForDay
	}

	client, err := s.llm.Resolve(ctx)
	if err != nil {
		return domain.DailySummary{}, err
	}
	resp, err := client.GenerateCompletion(ctx, analysis.BuildDailySummaryPrompt(date, insights), analysis.DailySummarySchemaHint())
	if err != nil {
		return domain.DailySummary{}, err
	}

	var reply summaryReply
	if err := json.Unmarshal([]byte(llm.UnwrapContent(resp.Content)), &reply); err != nil {
		return domain.DailySummary{}, fmt.Errorf("decode summary response: %w", err)
	}

	summary := domain.DailySummary{
		Date:            date,
		TimeZoneID:      loc.String(),
		EntryCount:      len(insights),
		TotalCalories:   reply.TotalCalories,
		Highlights:      nonNil(reply.Highlights),
		Recommendations: nonNil(reply.Recommendations),
		Summary:         strings.TrimSpace(reply.Summary),
		Provider:        string(client.Provider()),
		Model:           client.Model(),
		GeneratedAt:     s.now().UTC(),
	}
	// Stored meal estimates take precedence over the model's total.
	if haveCalories {
		summary.TotalCalories = &totalCalories
	}
	s.logger.InfoContext(ctx, "daily summary generated", "date", date, "entries", len(insights), "provider", summary.Provider)
	return summary, nil
}

func mealCalories(insightsJSON string) (float64, bool) {
	var doc domain.UnifiedAnalysisResult
	if err := json.Unmarshal([]byte(insightsJSON), &doc); err != nil {
		return 0, false
	}
	if doc.MealAnalysis == nil || doc.MealAnalysis.Nutrition == nil || doc.MealAnalysis.Nutrition.TotalCalories == nil {
		return 0, false
	}
	return *doc.MealAnalysis.Nutrition.TotalCalories, true
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/entities"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
)

const lowConfidenceThreshold = 0.5

var ErrInvalidAnalysis = errors.New("analysis response failed validation")

// Report collects what is wrong with a provider response. Errors reject the
// response; warnings are kept alongside the stored insights.
type Report struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r Report) IsValid() bool { return len(r.Errors) == 0 }

func (r Report) Err() error {
	if r.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidAnalysis, strings.Join(r.Errors, "; "))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

type Result struct {
	Analysis  domain.UnifiedAnalysisResult
	EntryType entities.EntryType
	Report    Report
}

// InsightsJSON is the document persisted on EntryAnalysis. Validation warnings
// are merged into the model's own warnings.
func (r *Result) InsightsJSON() (string, error) {
	doc := r.Analysis
	doc.Warnings = append(append([]string{}, doc.Warnings...), r.Report.Warnings...)
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseAndValidate unwraps, decodes and checks a raw provider response.
func ParseAndValidate(content string) (*Result, Report) {
	var report Report
	body := llm.UnwrapContent(content)
	if body == "" {
		report.errorf("response is empty")
		return nil, report
	}

	var parsed domain.UnifiedAnalysisResult
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		report.errorf("response is not valid JSON: %v", err)
		return nil, report
	}

	if strings.TrimSpace(parsed.EntryType) == "" {
		report.errorf("entryType is missing")
		return nil, report
	}
	entryType, ok := domain.EntryTypeFromDiscriminant(parsed.EntryType)
	if !ok {
		report.errorf("entryType %q is not one of meal, exercise, sleep, other", parsed.EntryType)
		return nil, report
	}
	parsed.EntryType = strings.ToLower(strings.TrimSpace(parsed.EntryType))

	if parsed.SchemaVersion == "" {
		parsed.SchemaVersion = domain.DefaultAnalysisSchemaVersion
		report.warnf("schemaVersion is missing, assuming %s", domain.DefaultAnalysisSchemaVersion)
	}

	var kind any
	switch entryType {
	case entities.EntryTypeMeal:
		if parsed.MealAnalysis == nil {
			report.errorf("mealAnalysis is required for entryType meal")
			return nil, report
		}
		kind = parsed.MealAnalysis
		checkMeal(parsed.MealAnalysis, &report)
	case entities.EntryTypeExercise:
		if parsed.ExerciseAnalysis == nil {
			report.errorf("exerciseAnalysis is required for entryType exercise")
			return nil, report
		}
		kind = parsed.ExerciseAnalysis
		checkExercise(parsed.ExerciseAnalysis, &report)
	case entities.EntryTypeSleep:
		if parsed.SleepAnalysis == nil {
			report.errorf("sleepAnalysis is required for entryType sleep")
			return nil, report
		}
		kind = parsed.SleepAnalysis
		if parsed.SleepAnalysis.DurationHours == nil {
			report.warnf("sleepAnalysis.durationHours is missing")
		}
	case entities.EntryTypeOther:
		if parsed.OtherAnalysis == nil {
			report.errorf("otherAnalysis is required for entryType other")
			return nil, report
		}
		kind = parsed.OtherAnalysis
		if strings.TrimSpace(parsed.OtherAnalysis.Summary) == "" {
			report.warnf("otherAnalysis.summary is missing")
		}
	}

	utils.InitValidator()
	if err := utils.Validate.Struct(kind); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				report.warnf("%s failed %s validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
		} else {
			report.warnf("range validation skipped: %v", err)
		}
	}

	if conf := parsed.EffectiveConfidence(); conf != nil && *conf < lowConfidenceThreshold {
		report.warnf("low confidence %.2f", *conf)
	}

	return &Result{Analysis: parsed, EntryType: entryType, Report: report}, report
}

func checkMeal(meal *domain.MealAnalysisResult, report *Report) {
	if len(meal.FoodItems) == 0 {
		report.warnf("mealAnalysis.foodItems is empty")
	}
	if meal.Nutrition == nil {
		report.warnf("mealAnalysis.nutrition is missing")
		return
	}
	if meal.Nutrition.TotalCalories == nil {
		report.warnf("mealAnalysis.nutrition.totalCalories is missing")
	}
	if meal.Nutrition.Protein == nil || meal.Nutrition.Carbohydrates == nil || meal.Nutrition.Fat == nil {
		report.warnf("mealAnalysis.nutrition macronutrients are incomplete")
	}
}

func checkExercise(ex *domain.ExerciseAnalysisResult, report *Report) {
	if ex.DurationMinutes == nil {
		report.warnf("exerciseAnalysis.durationMinutes is missing")
	}
	if ex.CaloriesBurned == nil {
		report.warnf("exerciseAnalysis.caloriesBurned is missing")
	}
}

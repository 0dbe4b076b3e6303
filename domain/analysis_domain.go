package domain

import (
	"strings"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

// DefaultAnalysisSchemaVersion is assumed when the model omits schemaVersion.
const DefaultAnalysisSchemaVersion = "1.0"

// UnifiedAnalysisResult is the single JSON document every provider is asked to
// return. EntryType selects which of the nested kind objects must be present.
type UnifiedAnalysisResult struct {
	SchemaVersion    string                  `json:"schemaVersion"`
	EntryType        string                  `json:"entryType"`
	Confidence       *float64                `json:"confidence,omitempty"`
	MealAnalysis     *MealAnalysisResult     `json:"mealAnalysis,omitempty"`
	ExerciseAnalysis *ExerciseAnalysisResult `json:"exerciseAnalysis,omitempty"`
	SleepAnalysis    *SleepAnalysisResult    `json:"sleepAnalysis,omitempty"`
	OtherAnalysis    *OtherAnalysisResult    `json:"otherAnalysis,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
}

type (
	MealAnalysisResult struct {
		FoodItems      []FoodItem         `json:"foodItems" validate:"dive"`
		Nutrition      *NutritionEstimate `json:"nutrition,omitempty"`
		HealthInsights *HealthInsights    `json:"healthInsights,omitempty"`
		Confidence     *float64           `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	}

	FoodItem struct {
		Name        string   `json:"name" validate:"required"`
		PortionSize string   `json:"portionSize,omitempty"`
		Calories    *float64 `json:"calories,omitempty" validate:"omitempty,min=0"`
		Confidence  *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	}

	NutritionEstimate struct {
		TotalCalories *float64 `json:"totalCalories,omitempty" validate:"omitempty,min=0"`
		Protein       *float64 `json:"protein,omitempty" validate:"omitempty,min=0"`
		Carbohydrates *float64 `json:"carbohydrates,omitempty" validate:"omitempty,min=0"`
		Fat           *float64 `json:"fat,omitempty" validate:"omitempty,min=0"`
		Fiber         *float64 `json:"fiber,omitempty" validate:"omitempty,min=0"`
		Sugar         *float64 `json:"sugar,omitempty" validate:"omitempty,min=0"`
		Sodium        *float64 `json:"sodium,omitempty" validate:"omitempty,min=0"`
	}

	HealthInsights struct {
		HealthScore     *float64 `json:"healthScore,omitempty" validate:"omitempty,min=0,max=10"`
		Summary         string   `json:"summary,omitempty"`
		Positives       []string `json:"positives,omitempty"`
		Improvements    []string `json:"improvements,omitempty"`
		Recommendations []string `json:"recommendations,omitempty"`
	}

	ExerciseAnalysisResult struct {
		ActivityType     string   `json:"activityType"`
		DurationMinutes  *float64 `json:"durationMinutes,omitempty" validate:"omitempty,min=0"`
		Distance         *float64 `json:"distance,omitempty" validate:"omitempty,min=0"`
		DistanceUnit     string   `json:"distanceUnit,omitempty"`
		CaloriesBurned   *float64 `json:"caloriesBurned,omitempty" validate:"omitempty,min=0"`
		AverageHeartRate *float64 `json:"averageHeartRate,omitempty" validate:"omitempty,min=0,max=260"`
		Steps            *int     `json:"steps,omitempty" validate:"omitempty,min=0"`
		Summary          string   `json:"summary,omitempty"`
		Recommendations  []string `json:"recommendations,omitempty"`
		Confidence       *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	}

	SleepAnalysisResult struct {
		DurationHours   *float64 `json:"durationHours,omitempty" validate:"omitempty,min=0,max=24"`
		SleepScore      *float64 `json:"sleepScore,omitempty" validate:"omitempty,min=0,max=100"`
		QualitySummary  string   `json:"qualitySummary,omitempty"`
		Environment     string   `json:"environment,omitempty"`
		Recommendations []string `json:"recommendations,omitempty"`
		Confidence      *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	}

	OtherAnalysisResult struct {
		Summary    string   `json:"summary"`
		Tags       []string `json:"tags,omitempty"`
		Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	}
)

// EntryTypeFromDiscriminant maps the case-insensitive entryType field to an
// entry kind. ok is false for anything outside meal/exercise/sleep/other.
func EntryTypeFromDiscriminant(value string) (entities.EntryType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "meal":
		return entities.EntryTypeMeal, true
	case "exercise":
		return entities.EntryTypeExercise, true
	case "sleep":
		return entities.EntryTypeSleep, true
	case "other":
		return entities.EntryTypeOther, true
	default:
		return entities.EntryTypeUnknown, false
	}
}

// EffectiveConfidence prefers the top-level confidence and falls back to the
// confidence of the kind object entryType selects. Other kind objects the
// model may have added are ignored.
func (r *UnifiedAnalysisResult) EffectiveConfidence() *float64 {
	if r.Confidence != nil {
		return r.Confidence
	}
	kind, _ := EntryTypeFromDiscriminant(r.EntryType)
	switch kind {
	case entities.EntryTypeMeal:
		if r.MealAnalysis != nil {
			return r.MealAnalysis.Confidence
		}
	case entities.EntryTypeExercise:
		if r.ExerciseAnalysis != nil {
			return r.ExerciseAnalysis.Confidence
		}
	case entities.EntryTypeSleep:
		if r.SleepAnalysis != nil {
			return r.SleepAnalysis.Confidence
		}
	case entities.EntryTypeOther:
		if r.OtherAnalysis != nil {
			return r.OtherAnalysis.Confidence
		}
	}
	return nil
}

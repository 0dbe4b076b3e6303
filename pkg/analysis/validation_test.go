package analysis

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

const validMeal = `{
  "schemaVersion": "1.0",
  "entryType": "meal",
  "confidence": 0.9,
  "mealAnalysis": {
    "foodItems": [{"name": "oatmeal", "portionSize": "1 bowl", "calories": 300}],
    "nutrition": {"totalCalories": 300, "protein": 10, "carbohydrates": 50, "fat": 6},
    "healthInsights": {"healthScore": 8, "summary": "Balanced breakfast"}
  }
}`

func TestParseAndValidate_ValidMeal(t *testing.T) {
	result, report := ParseAndValidate(validMeal)

	require.True(t, report.IsValid(), report.Errors)
	require.NotNil(t, result)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, entities.EntryTypeMeal, result.EntryType)
	assert.Equal(t, "oatmeal", result.Analysis.MealAnalysis.FoodItems[0].Name)
}

func TestParseAndValidate_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "   ", "empty"},
		{"malformed", `{"entryType": "meal",`, "not valid JSON"},
		{"missing entry type", `{"schemaVersion":"1.0","mealAnalysis":{}}`, "entryType is missing"},
		{"unknown entry type", `{"entryType":"snack","mealAnalysis":{}}`, "not one of"},
		{"meal without kind object", `{"entryType":"meal"}`, "mealAnalysis is required"},
		{"exercise without kind object", `{"entryType":"exercise","mealAnalysis":{}}`, "exerciseAnalysis is required"},
		{"sleep without kind object", `{"entryType":"sleep"}`, "sleepAnalysis is required"},
		{"other without kind object", `{"entryType":"other"}`, "otherAnalysis is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, report := ParseAndValidate(tc.content)

			assert.Nil(t, result)
			require.False(t, report.IsValid())
			assert.Contains(t, strings.Join(report.Errors, "\n"), tc.want)
			assert.ErrorIs(t, report.Err(), ErrInvalidAnalysis)
		})
	}
}

func TestParseAndValidate_EntryTypeIsCaseInsensitive(t *testing.T) {
	result, report := ParseAndValidate(`{"schemaVersion":"1.0","entryType":"SLEEP","sleepAnalysis":{"durationHours":7.5}}`)

	require.True(t, report.IsValid())
	assert.Equal(t, entities.EntryTypeSleep, result.EntryType)
	assert.Equal(t, "sleep", result.Analysis.EntryType)
}

func TestParseAndValidate_UnwrapsFences(t *testing.T) {
	content := "Here is the analysis:\n```json\n" + validMeal + "\n```"

	result, report := ParseAndValidate(content)
	require.True(t, report.IsValid())
	assert.Equal(t, entities.EntryTypeMeal, result.EntryType)
}

func TestParseAndValidate_Warnings(t *testing.T) {
	content := `{
	  "entryType": "meal",
	  "confidence": 0.3,
	  "mealAnalysis": {
	    "foodItems": [{"name": "pizza"}],
	    "healthInsights": {"healthScore": 14}
	  }
	}`

	result, report := ParseAndValidate(content)
	require.True(t, report.IsValid())
	require.NotNil(t, result)

	joined := strings.Join(report.Warnings, "\n")
	assert.Contains(t, joined, "schemaVersion is missing")
	assert.Contains(t, joined, "nutrition is missing")
	assert.Contains(t, joined, "HealthScore")
	assert.Contains(t, joined, "low confidence")
	assert.Equal(t, "1.0", result.Analysis.SchemaVersion)
}

func TestParseAndValidate_ExerciseMissingNumbersWarn(t *testing.T) {
	result, report := ParseAndValidate(`{"schemaVersion":"1.0","entryType":"exercise","exerciseAnalysis":{"activityType":"run"}}`)

	require.True(t, report.IsValid())
	assert.Equal(t, entities.EntryTypeExercise, result.EntryType)
	assert.Len(t, report.Warnings, 2)
}

func TestParseAndValidate_ConfidenceComesFromDeclaredKind(t *testing.T) {
	content := `{"schemaVersion":"1.0","entryType":"exercise",
	  "exerciseAnalysis":{"activityType":"run","durationMinutes":30,"caloriesBurned":300,"confidence":0.95},
	  "mealAnalysis":{"foodItems":[],"confidence":0.1}}`

	result, report := ParseAndValidate(content)
	require.True(t, report.IsValid())
	assert.Equal(t, entities.EntryTypeExercise, result.EntryType)
	assert.NotContains(t, strings.Join(report.Warnings, "\n"), "low confidence")

	lowExercise := `{"schemaVersion":"1.0","entryType":"exercise",
	  "exerciseAnalysis":{"activityType":"run","durationMinutes":30,"caloriesBurned":300,"confidence":0.2},
	  "mealAnalysis":{"foodItems":[],"confidence":0.99}}`
	_, report = ParseAndValidate(lowExercise)
	require.True(t, report.IsValid())
	assert.Contains(t, strings.Join(report.Warnings, "\n"), "low confidence")
}

func TestResult_InsightsJSONMergesWarnings(t *testing.T) {
	result, report := ParseAndValidate(`{"entryType":"other","warnings":["blurry photo"],"otherAnalysis":{"summary":"glass of water"}}`)
	require.True(t, report.IsValid())

	raw, err := result.InsightsJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	warnings := doc["warnings"].([]any)
	require.Len(t, warnings, 2)
	assert.Equal(t, "blurry photo", warnings[0])
	assert.Contains(t, warnings[1], "schemaVersion")
	assert.Equal(t, "1.0", doc["schemaVersion"])
}

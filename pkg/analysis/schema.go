package analysis

import (
	"encoding/json"

	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
)

// UnifiedSchema describes the single document every provider must return for
// an entry. Exactly the kind object matching entryType is expected.
var UnifiedSchema = json.RawMessage(`{
  "type": "object",
  "required": ["schemaVersion", "entryType"],
  "properties": {
    "schemaVersion": {"type": "string"},
    "entryType": {"type": "string", "enum": ["meal", "exercise", "sleep", "other"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "warnings": {"type": "array", "items": {"type": "string"}},
    "mealAnalysis": {
      "type": "object",
      "properties": {
        "foodItems": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string"},
              "portionSize": {"type": "string"},
              "calories": {"type": "number"},
              "confidence": {"type": "number"}
            }
          }
        },
        "nutrition": {
          "type": "object",
          "properties": {
            "totalCalories": {"type": "number"},
            "protein": {"type": "number"},
            "carbohydrates": {"type": "number"},
            "fat": {"type": "number"},
            "fiber": {"type": "number"},
            "sugar": {"type": "number"},
            "sodium": {"type": "number"}
          }
        },
        "healthInsights": {
          "type": "object",
          "properties": {
            "healthScore": {"type": "number", "minimum": 0, "maximum": 10},
            "summary": {"type": "string"},
            "positives": {"type": "array", "items": {"type": "string"}},
            "improvements": {"type": "array", "items": {"type": "string"}},
            "recommendations": {"type": "array", "items": {"type": "string"}}
          }
        },
        "confidence": {"type": "number"}
      }
    },
    "exerciseAnalysis": {
      "type": "object",
      "properties": {
        "activityType": {"type": "string"},
        "durationMinutes": {"type": "number"},
        "distance": {"type": "number"},
        "distanceUnit": {"type": "string"},
        "caloriesBurned": {"type": "number"},
        "averageHeartRate": {"type": "number"},
        "steps": {"type": "integer"},
        "summary": {"type": "string"},
        "recommendations": {"type": "array", "items": {"type": "string"}},
        "confidence": {"type": "number"}
      }
    },
    "sleepAnalysis": {
      "type": "object",
      "properties": {
        "durationHours": {"type": "number"},
        "sleepScore": {"type": "number"},
        "qualitySummary": {"type": "string"},
        "environment": {"type": "string"},
        "recommendations": {"type": "array", "items": {"type": "string"}},
        "confidence": {"type": "number"}
      }
    },
    "otherAnalysis": {
      "type": "object",
      "properties": {
        "summary": {"type": "string"},
        "tags": {"type": "array", "items": {"type": "string"}},
        "confidence": {"type": "number"}
      }
    }
  }
}`)

var DailySummarySchema = json.RawMessage(`{
  "type": "object",
  "required": ["summary"],
  "properties": {
    "summary": {"type": "string"},
    "totalCalories": {"type": "number"},
    "highlights": {"type": "array", "items": {"type": "string"}},
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`)

func UnifiedSchemaHint() *llm.SchemaHint {
	return &llm.SchemaHint{Name: "unified_analysis", Schema: UnifiedSchema}
}

func DailySummarySchemaHint() *llm.SchemaHint {
	return &llm.SchemaHint{Name: "daily_summary", Schema: DailySummarySchema}
}

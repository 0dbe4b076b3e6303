package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

const entryInstructions = `You are a health tracking assistant. Classify the entry as one of
meal, exercise, sleep or other and analyse it.

Rules:
- Set "entryType" to the classification and fill ONLY the matching object:
  mealAnalysis, exerciseAnalysis, sleepAnalysis or otherAnalysis.
- For meals, list the visible food items and estimate calories and macronutrients in grams.
- For exercise, read duration, distance, calories and heart rate from screenshots when shown.
- For sleep, read duration in hours and any sleep score from tracker screenshots.
- Give a confidence between 0 and 1.
- Set "schemaVersion" to "1.0".
- Respond with JSON only.`

// BuildEntryPrompt renders the analysis prompt for an entry. The user's notes
// are passed through as context, never as instructions.
func BuildEntryPrompt(entry *entities.TrackedEntry, payload domain.EntryPayload) string {
	var b strings.Builder
	b.WriteString(entryInstructions)
	b.WriteString("\n\n")

	local := entry.LocalCapturedAt()
	fmt.Fprintf(&b, "Captured at: %s (%s)\n", local.Format(time.RFC3339), local.Weekday())
	if entry.EntryType != "" && entry.EntryType != entities.EntryTypeUnknown {
		fmt.Fprintf(&b, "The user filed this as: %s\n", strings.ToLower(string(entry.EntryType)))
	}
	if payload.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", payload.Description)
	}
	if payload.UserNotes != "" {
		fmt.Fprintf(&b, "User notes: %q\n", payload.UserNotes)
	}
	if !entry.HasImage() {
		b.WriteString("No image is attached; analyse the text above.\n")
	}
	return b.String()
}

// BuildDailySummaryPrompt renders the prompt for a day of analysed entries.
func BuildDailySummaryPrompt(date string, insights []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarise the health entries logged on %s.\n", date)
	b.WriteString("Give an overall summary, the day's highlights and up to three recommendations.\n")
	b.WriteString("Add up meal calories into totalCalories when meals are present.\n")
	b.WriteString("Respond with JSON only.\n\nEntries:\n")
	for i, insight := range insights {
		fmt.Fprintf(&b, "%d. %s\n", i+1, insight)
	}
	return b.String()
}

package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"resume-analyzer/internal/shared/telemetry"
)

// Source names the path that produced a Result.
type Source string

const (
	SourceModel             Source = "model"
	SourceTextHeuristics    Source = "text_heuristics"
	SourceContentHeuristics Source = "content_heuristics"
)

const (
	defaultSummary       = "Analysis completed"
	defaultTextScore     = 75
	maxHeuristicItems    = 5
	summaryPreviewRunes  = 200
	contentFallbackIntro = "Basic analysis completed. For detailed AI-powered feedback, please try again when the service is available."
)

// Result is the structured feedback for one resume. Lists are never nil and
// OverallScore is always within [0,100].
type Result struct {
	Strengths       []string  `json:"strengths"`
	Weaknesses      []string  `json:"weaknesses"`
	MissingSections []string  `json:"missingSections"`
	Suggestions     []string  `json:"suggestions"`
	OverallScore    int       `json:"overallScore"`
	Summary         string    `json:"summary"`
	AnalyzedAt      time.Time `json:"analyzedAt"`
	Source          Source    `json:"source"`
}

var errNoJSONObject = errors.New("no JSON object in response")

type modelPayload struct {
	Strengths       []string `mapstructure:"strengths"`
	Weaknesses      []string `mapstructure:"weaknesses"`
	MissingSections []string `mapstructure:"missingSections"`
	Suggestions     []string `mapstructure:"suggestions"`
	OverallScore    float64  `mapstructure:"overallScore"`
	Summary         string   `mapstructure:"summary"`
}

// FromModelJSON decodes the first brace-delimited object in raw. Loosely typed
// values are coerced ("85" becomes 85, a lone string becomes a one-item list).
func FromModelJSON(raw string, now time.Time) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, errNoJSONObject
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err != nil {
		return Result{}, fmt.Errorf("decode model json: %w", err)
	}

	var payload modelPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return Result{}, err
	}
	if err := decoder.Decode(data); err != nil {
		return Result{}, fmt.Errorf("decode model fields: %w", err)
	}

	if drift := schemaDrift(data); len(drift) > 0 {
		telemetry.Warn("analysis.schema_drift", map[string]any{
			"issues": strings.Join(drift, "; "),
		})
	}

	summary := payload.Summary
	if strings.TrimSpace(summary) == "" {
		summary = defaultSummary
	}
	return Result{
		Strengths:       nonNil(payload.Strengths),
		Weaknesses:      nonNil(payload.Weaknesses),
		MissingSections: nonNil(payload.MissingSections),
		Suggestions:     nonNil(payload.Suggestions),
		OverallScore:    clampScoreFloat(payload.OverallScore),
		Summary:         summary,
		AnalyzedAt:      now,
		Source:          SourceModel,
	}, nil
}

var (
	bulletPrefix   = regexp.MustCompile(`^\s*[-•*]\s*`)
	keywordEcho    = regexp.MustCompile(`(?i)^(strength|weakness|missing|suggestion)`)
	scorePattern   = regexp.MustCompile(`(?i)(\d+)(?:/100|%|\s*(?:out of|score))`)
	keywordPattern = map[string]*regexp.Regexp{}
)

func init() {
	for _, kw := range []string{"strength", "weakness", "missing", "suggestion"} {
		keywordPattern[kw] = regexp.MustCompile(`(?i)` + kw + `s?:?\s*([^\n]*(?:\n[^\n]*){0,5})`)
	}
}

// FromTextHeuristics scrapes list items and a score out of free text.
func FromTextHeuristics(raw string, now time.Time) Result {
	score := defaultTextScore
	if m := scorePattern.FindStringSubmatch(raw); m != nil {
		if parsed, err := strconv.ParseFloat(m[1], 64); err == nil {
			score = clampScoreFloat(parsed)
		}
	}

	return Result{
		Strengths:       listFromText(raw, "strength"),
		Weaknesses:      listFromText(raw, "weakness"),
		MissingSections: listFromText(raw, "missing"),
		Suggestions:     listFromText(raw, "suggestion"),
		OverallScore:    clampScore(score),
		Summary:         preview(raw, summaryPreviewRunes) + "...",
		AnalyzedAt:      now,
		Source:          SourceTextHeuristics,
	}
}

func listFromText(raw, keyword string) []string {
	items := []string{}
	for _, match := range keywordPattern[keyword].FindAllString(raw, -1) {
		for _, line := range strings.Split(match, "\n") {
			cleaned := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
			if cleaned == "" || keywordEcho.MatchString(cleaned) {
				continue
			}
			items = append(items, cleaned)
		}
	}
	if len(items) > maxHeuristicItems {
		items = items[:maxHeuristicItems]
	}
	return items
}

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern      = regexp.MustCompile(`[+]?[1-9]\d{3,14}`)
	educationPattern  = regexp.MustCompile(`(?i)education|degree|university|college|school`)
	experiencePattern = regexp.MustCompile(`(?i)experience|work|job|position|role`)
	skillsPattern     = regexp.MustCompile(`(?i)skills|technologies|proficient|familiar`)
)

// FromContentHeuristics builds a basic analysis from the resume text alone.
// It is used when the model stays unavailable after retries.
func FromContentHeuristics(text string, now time.Time) Result {
	wordCount := len(strings.Fields(text))
	hasContact := emailPattern.MatchString(text) && phonePattern.MatchString(text)
	hasEducation := educationPattern.MatchString(text)
	hasExperience := experiencePattern.MatchString(text)
	hasSkills := skillsPattern.MatchString(text)

	strengths := []string{}
	weaknesses := []string{}
	missing := []string{}
	suggestions := []string{}
	score := 50

	if wordCount > 200 {
		strengths = append(strengths, "Resume has substantial content")
		score += 5
	} else {
		weaknesses = append(weaknesses, "Resume appears to be quite brief")
	}
	if hasContact {
		strengths = append(strengths, "Contact information is present")
		score += 10
	} else {
		missing = append(missing, "Complete contact information")
		suggestions = append(suggestions, "Ensure both email and phone number are included")
	}
	if hasEducation {
		strengths = append(strengths, "Education section is present")
		score += 10
	} else {
		missing = append(missing, "Education background")
	}
	if hasExperience {
		strengths = append(strengths, "Work experience is mentioned")
		score += 15
	} else {
		missing = append(missing, "Professional experience")
	}
	if hasSkills {
		strengths = append(strengths, "Skills section is included")
		score += 10
	} else {
		missing = append(missing, "Skills and competencies")
	}

	suggestions = append(suggestions,
		"Consider having your resume professionally reviewed",
		"Ensure all sections are clearly organized and formatted",
		"Quantify achievements with specific numbers and results",
	)

	return Result{
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		MissingSections: missing,
		Suggestions:     suggestions,
		OverallScore:    clampScore(score),
		Summary:         contentFallbackIntro,
		AnalyzedAt:      now,
		Source:          SourceContentHeuristics,
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// clampScoreFloat bounds before converting so huge values cannot overflow.
func clampScoreFloat(score float64) int {
	switch {
	case math.IsNaN(score), score <= 0:
		return 0
	case score >= 100:
		return 100
	default:
		return int(score)
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Package domain holds the caller-facing analysis result model and the
// canonical error types shared across the pipeline.
package domain

// Category identifies one of the fixed feedback categories in an analysis.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryClothing   Category = "clothing"
	CategoryPose       Category = "pose"
	CategoryBackground Category = "background"
	CategoryHair       Category = "hair"
	CategorySkin       Category = "skin"
	CategoryLighting   Category = "lighting"
	CategoryExpression Category = "expression"
)

// Categories lists every feedback category in display order.
var Categories = []Category{
	CategoryGeneral,
	CategoryClothing,
	CategoryPose,
	CategoryBackground,
	CategoryHair,
	CategorySkin,
	CategoryLighting,
	CategoryExpression,
}

// EmotionalAnalysis describes how the subject comes across in the photo.
type EmotionalAnalysis struct {
	Expression      string `json:"expression"`
	Approachability string `json:"approachability"`
	Confidence      string `json:"confidence"`
	PerceivedMood   string `json:"perceivedMood"`
}

// Remedy is a single skin wellness recommendation.
type Remedy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
}

// TokenUsage carries the model's reported token accounting for diagnostics.
type TokenUsage struct {
	PromptTokens   int `json:"promptTokens"`
	ResponseTokens int `json:"responseTokens"`
	TotalTokens    int `json:"totalTokens"`
}

// AnalysisResult is the normalized, display-oriented outcome of one analysis.
// It is the only shape callers ever see; the compact wire schema is mapped
// into it by the normalize package and never leaks past it.
type AnalysisResult struct {
	Summary              string              `json:"summary"`
	Suggestions          []string            `json:"suggestions"`
	Details              map[Category]string `json:"details"`
	RecaptureSuggestions []string            `json:"recaptureSuggestions"`
	EmotionalAnalysis    *EmotionalAnalysis  `json:"emotionalAnalysis,omitempty"`
	SkinWellness         []Remedy            `json:"skinWellness,omitempty"`
	DisclaimerText       string              `json:"disclaimerText,omitempty"`
	TokenUsage           *TokenUsage         `json:"tokenUsage,omitempty"`
}

// SkinWellnessDisclaimer is attached to results that include skin wellness
// remedies. Fixed advisory text, not model output.
const SkinWellnessDisclaimer = "These suggestions are general wellness tips, not medical advice. Consult a dermatologist for persistent skin concerns."

// Package wire defines the compact schema exchanged with the analysis
// backend. The single-letter keys are a bandwidth optimization on the model
// side; this package is the only place they appear. Everything else in the
// repo works with the domain model produced by the normalize package.
package wire

// Request is the analysis request body.
type Request struct {
	// Image is the base64-encoded compressed photo, without a data-URL prefix.
	Image string `json:"image"`

	// Prompt is the instruction text describing the expected output schema.
	Prompt string `json:"prompt"`

	// Model is the model preference for this attempt.
	Model string `json:"model"`
}

// Details holds per-category feedback under abbreviated keys.
type Details struct {
	General    string `json:"gen"`
	Clothing   string `json:"clo"`
	Pose       string `json:"pos"`
	Background string `json:"bkg"`
	Hair       string `json:"har"`
	Skin       string `json:"ski"`
	Lighting   string `json:"lig"`
	Expression string `json:"exp"`
}

// Emotional holds the optional emotional read of the photo.
type Emotional struct {
	Expression      string `json:"emo"`
	Approachability string `json:"app"`
	Confidence      string `json:"conf"`
	PerceivedMood   string `json:"mood"`
}

// Remedy is one skin wellness entry.
type Remedy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
}

// TokenUsage is the backend's token accounting.
type TokenUsage struct {
	PromptTokens   int `json:"promptTokens"`
	ResponseTokens int `json:"responseTokens"`
	TotalTokens    int `json:"totalTokens"`
}

// Response is the analysis response body. S, G, D and R are required;
// E, W and TokenUsage are optional sections.
type Response struct {
	Summary     string      `json:"s"`
	Suggestions []string    `json:"g"`
	Details     *Details    `json:"d"`
	Recapture   []string    `json:"r"`
	Emotional   *Emotional  `json:"e,omitempty"`
	Wellness    []Remedy    `json:"w,omitempty"`
	TokenUsage  *TokenUsage `json:"tokenUsage,omitempty"`
}

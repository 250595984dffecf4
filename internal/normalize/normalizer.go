// Package normalize translates the compact wire schema into the
// display-oriented domain model. It is the only consumer of the short wire
// keys; a malformed payload surfaces as a typed error distinguishable from
// transport failures so callers know a retry will not help.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/styleglow/analyzer/internal/domain"
	"github.com/styleglow/analyzer/internal/wire"
)

// Normalize parses a raw wire response and maps it to the domain model.
func Normalize(raw []byte) (*domain.AnalysisResult, error) {
	var resp wire.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, domain.ErrMalformedResponse(fmt.Sprintf("invalid response JSON: %v", err))
	}
	return FromWire(&resp)
}

// FromWire maps an already-decoded wire response to the domain model,
// validating the required shape.
func FromWire(resp *wire.Response) (*domain.AnalysisResult, error) {
	if resp.Summary == "" {
		return nil, domain.ErrMalformedResponse("missing summary (s)")
	}
	if len(resp.Suggestions) == 0 {
		return nil, domain.ErrMalformedResponse("missing suggestions (g)")
	}
	if resp.Details == nil {
		return nil, domain.ErrMalformedResponse("missing details (d)")
	}
	if len(resp.Recapture) == 0 {
		return nil, domain.ErrMalformedResponse("missing recapture tips (r)")
	}

	result := &domain.AnalysisResult{
		Summary:     resp.Summary,
		Suggestions: resp.Suggestions,
		Details: map[domain.Category]string{
			domain.CategoryGeneral:    resp.Details.General,
			domain.CategoryClothing:   resp.Details.Clothing,
			domain.CategoryPose:       resp.Details.Pose,
			domain.CategoryBackground: resp.Details.Background,
			domain.CategoryHair:       resp.Details.Hair,
			domain.CategorySkin:       resp.Details.Skin,
			domain.CategoryLighting:   resp.Details.Lighting,
			domain.CategoryExpression: resp.Details.Expression,
		},
		RecaptureSuggestions: resp.Recapture,
	}

	if resp.Emotional != nil {
		result.EmotionalAnalysis = &domain.EmotionalAnalysis{
			Expression:      resp.Emotional.Expression,
			Approachability: resp.Emotional.Approachability,
			Confidence:      resp.Emotional.Confidence,
			PerceivedMood:   resp.Emotional.PerceivedMood,
		}
	}

	if len(resp.Wellness) > 0 {
		remedies := make([]domain.Remedy, 0, len(resp.Wellness))
		for _, w := range resp.Wellness {
			remedies = append(remedies, domain.Remedy{
				Title:       w.Title,
				Description: w.Description,
				Ingredients: w.Ingredients,
			})
		}
		result.SkinWellness = remedies
		result.DisclaimerText = domain.SkinWellnessDisclaimer
	}

	if resp.TokenUsage != nil {
		result.TokenUsage = &domain.TokenUsage{
			PromptTokens:   resp.TokenUsage.PromptTokens,
			ResponseTokens: resp.TokenUsage.ResponseTokens,
			TotalTokens:    resp.TokenUsage.TotalTokens,
		}
	}

	return result, nil
}

// ToWire maps a domain result back onto the wire schema. The mapping is
// lossless field-for-field; used for persistence and round-trip tests.
func ToWire(result *domain.AnalysisResult) *wire.Response {
	resp := &wire.Response{
		Summary:     result.Summary,
		Suggestions: result.Suggestions,
		Details: &wire.Details{
			General:    result.Details[domain.CategoryGeneral],
			Clothing:   result.Details[domain.CategoryClothing],
			Pose:       result.Details[domain.CategoryPose],
			Background: result.Details[domain.CategoryBackground],
			Hair:       result.Details[domain.CategoryHair],
			Skin:       result.Details[domain.CategorySkin],
			Lighting:   result.Details[domain.CategoryLighting],
			Expression: result.Details[domain.CategoryExpression],
		},
		Recapture: result.RecaptureSuggestions,
	}

	if result.EmotionalAnalysis != nil {
		resp.Emotional = &wire.Emotional{
			Expression:      result.EmotionalAnalysis.Expression,
			Approachability: result.EmotionalAnalysis.Approachability,
			Confidence:      result.EmotionalAnalysis.Confidence,
			PerceivedMood:   result.EmotionalAnalysis.PerceivedMood,
		}
	}

	for _, r := range result.SkinWellness {
		resp.Wellness = append(resp.Wellness, wire.Remedy{
			Title:       r.Title,
			Description: r.Description,
			Ingredients: r.Ingredients,
		})
	}

	if result.TokenUsage != nil {
		resp.TokenUsage = &wire.TokenUsage{
			PromptTokens:   result.TokenUsage.PromptTokens,
			ResponseTokens: result.TokenUsage.ResponseTokens,
			TotalTokens:    result.TokenUsage.TotalTokens,
		}
	}

	return resp
}

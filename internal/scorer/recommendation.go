package scorer

import (
	"fmt"
	"strings"
)

// Recommendation is the action the model proposes for a job.
type Recommendation string

const (
	AutoApply   Recommendation = "auto_apply"
	HumanReview Recommendation = "human_review"
	Skip        Recommendation = "skip"
)

var recommendationNormalizer = strings.NewReplacer(" ", "_", "-", "_")

// ParseRecommendation accepts the canonical values and loose spellings such as "Auto-Apply".
func ParseRecommendation(value string) (Recommendation, error) {
	normalized := Recommendation(recommendationNormalizer.Replace(strings.ToLower(strings.TrimSpace(value))))

	switch normalized {
	case AutoApply, HumanReview, Skip:
		return normalized, nil
	default:
		return "", fmt.Errorf("apply_recommendation must be one of %s, %s, %s; got %q", AutoApply, HumanReview, Skip, value)
	}
}

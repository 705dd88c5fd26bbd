package assistant

import (
	"fmt"
	"strings"

	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/intent"
)

// FollowUps derives deterministic next-question suggestions from the metric
// definition and the intent just executed. No model call involved, so the
// suggestions work even when the completion service is down.
func FollowUps(metric catalog.MetricDefinition, qi intent.QueryIntent) []string {
	var suggestions []string

	used := map[string]bool{}
	for _, d := range qi.Dimensions {
		used[d] = true
	}
	for _, dim := range metric.AllowedDimensions {
		if used[dim] {
			continue
		}
		suggestions = append(suggestions, fmt.Sprintf("Break %s down by %s", strings.ToLower(metric.DisplayName), humanDimension(dim)))
		if len(suggestions) == 2 {
			break
		}
	}

	if qi.Comparison == nil {
		suggestions = append(suggestions, "Compare this to the previous period")
	}

	if len(qi.Filters) > 0 {
		suggestions = append(suggestions, "Remove the filters and look at everything")
	}

	return suggestions
}

func humanDimension(dim string) string {
	switch dim {
	case "claim_type":
		return "claim type"
	case "month", "week", "day":
		return dim
	default:
		return strings.ReplaceAll(dim, "_", " ")
	}
}

package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/claimlens/claimlens/internal/intent"
)

// keyPayload is the canonical shape hashed into a cache key. Struct fields
// marshal in declaration order, so two structurally equal inputs always
// produce identical JSON regardless of how the caller's maps or request
// bodies ordered their keys.
type keyPayload struct {
	Metric     string          `json:"metric"`
	Client     string          `json:"client"`
	Filters    []intent.Filter `json:"filters"`
	TimeRange  string          `json:"time_range"`
	Dimensions []string        `json:"dimensions"`
}

// Key derives the deterministic cache key for one compiled query. Filters
// are sorted by field so their arrival order cannot split the cache;
// dimension order is hashed as-is because it changes label composition in
// the formatted result.
func Key(metricSlug, clientID string, filters []intent.Filter, timeRangeValue string, dimensions []string) string {
	sorted := append([]intent.Filter(nil), filters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Field != sorted[j].Field {
			return sorted[i].Field < sorted[j].Field
		}
		return sorted[i].Operator < sorted[j].Operator
	})
	if sorted == nil {
		sorted = []intent.Filter{}
	}

	dims := dimensions
	if dims == nil {
		dims = []string{}
	}

	raw, err := json.Marshal(keyPayload{
		Metric:     metricSlug,
		Client:     clientID,
		Filters:    sorted,
		TimeRange:  timeRangeValue,
		Dimensions: dims,
	})
	if err != nil {
		// Filter values are plain JSON scalars; marshalling them cannot
		// fail in practice. Fall back to an uncacheable key.
		return ""
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

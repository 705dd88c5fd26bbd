package anomaly

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/engine"
)

const (
	// bucketDays is the width of one baseline bucket.
	bucketDays = 7
	// minBuckets is the least history a metric needs before it can be
	// analyzed at all.
	minBuckets = 3

	DefaultLookbackDays = 30
	DefaultThreshold    = 2.0
)

// Options tunes one detection run.
type Options struct {
	// MetricSlugs restricts the run; empty means every active metric.
	MetricSlugs []string
	// LookbackDays is the window partitioned into weekly buckets.
	LookbackDays int
	// Threshold is the |z-score| above which an event is emitted.
	Threshold float64
	// AsOf anchors the window's end date; zero means today. Fixed in
	// tests, left zero in production.
	AsOf time.Time
}

// Detector computes rolling weekly baselines per metric and flags
// statistically significant deviations. It is built on the same compiled
// query primitives the interactive engine uses.
type Detector struct {
	catalog  *catalog.Cached
	compiler *engine.Compiler
	store    *Store
	log      zerolog.Logger
}

// NewDetector creates an anomaly detector.
func NewDetector(cat *catalog.Cached, compiler *engine.Compiler, store *Store, log zerolog.Logger) *Detector {
	return &Detector{catalog: cat, compiler: compiler, store: store, log: log}
}

// Detect analyzes each metric under consideration, persists all emitted
// events as a batch, and returns them sorted by severity, highest first.
// One metric failing to analyze is logged and skipped; the run continues
// with the rest.
func (d *Detector) Detect(ctx context.Context, clientID string, opts Options) ([]Event, error) {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultLookbackDays
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	asOf = asOf.Truncate(24 * time.Hour)

	slugs, err := d.metricSlugs(ctx, opts.MetricSlugs)
	if err != nil {
		return nil, err
	}

	detectedAt := time.Now().UTC()
	var events []Event
	for _, slug := range slugs {
		event, err := d.analyzeMetric(ctx, clientID, slug, asOf, opts)
		if err != nil {
			d.log.Warn().Err(err).Str("metric", slug).Msg("metric analysis failed, skipping")
			continue
		}
		if event != nil {
			event.DetectedAt = detectedAt
			events = append(events, *event)
		}
	}

	if len(events) > 0 {
		if err := d.store.InsertBatch(ctx, events); err != nil {
			return nil, err
		}
	}

	sortBySeverity(events)
	return events, nil
}

// sortBySeverity orders events critical-first, breaking ties on |z-score|.
func sortBySeverity(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if severityRank[events[i].Severity] != severityRank[events[j].Severity] {
			return severityRank[events[i].Severity] > severityRank[events[j].Severity]
		}
		return math.Abs(events[i].ZScore) > math.Abs(events[j].ZScore)
	})
}

func (d *Detector) metricSlugs(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}
	defs, err := d.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(defs))
	for _, def := range defs {
		slugs = append(slugs, def.Slug)
	}
	return slugs, nil
}

// analyzeMetric partitions the lookback window into consecutive 7-day
// buckets, treats the newest as the current value and the rest as the
// baseline, and emits an event when the z-score clears the threshold.
func (d *Detector) analyzeMetric(ctx context.Context, clientID, slug string, asOf time.Time, opts Options) (*Event, error) {
	nBuckets := opts.LookbackDays / bucketDays
	if nBuckets < minBuckets {
		d.log.Debug().Str("metric", slug).Int("buckets", nBuckets).Msg("insufficient history, skipping")
		return nil, nil
	}

	values := make([]float64, nBuckets)
	for i := 0; i < nBuckets; i++ {
		bucketEnd := asOf.AddDate(0, 0, -bucketDays*(nBuckets-1-i))
		bucketStart := bucketEnd.AddDate(0, 0, -(bucketDays - 1))
		v, err := d.compiler.Total(ctx, slug, clientID, nil, bucketStart, bucketEnd)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	current := values[nBuckets-1]
	baseline := values[:nBuckets-1]
	mean, stdDev := meanStdDev(baseline)

	// Zero variance means no usable signal; z-score pins to 0 rather than
	// dividing by zero.
	var zScore float64
	if stdDev > 0 {
		zScore = (current - mean) / stdDev
	}

	if math.Abs(zScore) <= opts.Threshold {
		return nil, nil
	}

	direction := DirectionDown
	if current > mean {
		direction = DirectionUp
	}

	return &Event{
		ClientID:       clientID,
		MetricSlug:     slug,
		Direction:      direction,
		ZScore:         zScore,
		CurrentValue:   current,
		BaselineMean:   mean,
		BaselineStdDev: stdDev,
		Severity:       severityFor(zScore),
	}, nil
}

// severityFor maps an emitted event's z-score to its severity band.
func severityFor(z float64) Severity {
	abs := math.Abs(z)
	switch {
	case abs > 3:
		return SeverityCritical
	case abs > 2.5:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		sqDiff += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sqDiff / float64(len(values)))
}

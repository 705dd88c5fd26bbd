// Package engine is the analytics query engine: it folds a structured query
// intent into the conversation context, validates it against the metric
// catalog, compiles and executes a parameterized aggregation query with
// caching, and reshapes the result into a chart.
package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/conversation"
	"github.com/claimlens/claimlens/internal/intent"
	"github.com/claimlens/claimlens/internal/querycache"
)

// Engine wires the per-turn pipeline together. It is stateless and
// request-scoped; all durable state lives in the data store, and turns for
// the same thread must be serialized by the caller.
type Engine struct {
	catalog       *catalog.Cached
	compiler      *Compiler
	cache         querycache.Cache
	conversations *conversation.Store
	cacheTTL      time.Duration
	log           zerolog.Logger
}

// New creates an engine. A nil cache disables caching; a zero ttl uses the
// cache default.
func New(cat *catalog.Cached, compiler *Compiler, cache querycache.Cache, conversations *conversation.Store, cacheTTL time.Duration, log zerolog.Logger) *Engine {
	return &Engine{
		catalog:       cat,
		compiler:      compiler,
		cache:         cache,
		conversations: conversations,
		cacheTTL:      cacheTTL,
		log:           log,
	}
}

// Compiler exposes the underlying query compiler for collaborators built on
// the same primitives, like the anomaly detector.
func (e *Engine) Compiler() *Compiler { return e.compiler }

// TurnRequest is one conversational turn's worth of work.
type TurnRequest struct {
	ThreadID string             `json:"thread_id,omitempty"`
	ClientID string             `json:"client_id"`
	Message  string             `json:"message,omitempty"`
	Intent   intent.QueryIntent `json:"intent"`
}

// TurnResult is the chart-ready outcome of a turn. A turn that failed
// validation carries the collected errors and no chart.
type TurnResult struct {
	Valid            bool                `json:"valid"`
	ValidationErrors []string            `json:"validation_errors,omitempty"`
	Chart            *Chart              `json:"chart,omitempty"`
	Rows             []Row               `json:"rows,omitempty"`
	Assumptions      []intent.Assumption `json:"assumptions,omitempty"`
	FromCache        bool                `json:"from_cache"`
	QueryMs          int64               `json:"query_ms"`
	RecordCount      int                 `json:"record_count"`
}

// cachedResult is the payload shape stored in the query cache.
type cachedResult struct {
	Rows []Row `json:"rows"`
}

// RunTurn executes one conversational turn: merge intent into the thread
// context, validate, check the cache, execute on miss, format, persist the
// context. Query failures surface as *QueryError.
func (e *Engine) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	current, turnIndex, err := e.loadContext(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}

	merged := conversation.Merge(current, req.Intent, turnIndex, req.Message)
	effective := merged.EffectiveIntent(req.Intent.IntentType)

	defs, err := e.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	validation := intent.Validate(effective, defs)
	if !validation.Valid {
		return &TurnResult{Valid: false, ValidationErrors: validation.Errors}, nil
	}
	metric := *validation.Metric

	rows, fromCache, queryMs, err := e.fetchRows(ctx, metric.Slug, effective, req.ClientID)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{
		Valid:       true,
		Rows:        rows,
		Assumptions: req.Intent.Assumptions,
		FromCache:   fromCache,
		QueryMs:     queryMs,
		RecordCount: len(rows),
	}

	if effective.Comparison != nil {
		chart, err := e.comparisonChart(ctx, metric, effective, req.ClientID, rows)
		if err != nil {
			return nil, err
		}
		result.Chart = chart
	} else {
		chart := Format(rows, effective, metric)
		result.Chart = &chart
	}

	if req.ThreadID != "" {
		if err := e.conversations.Save(ctx, req.ThreadID, req.ClientID, merged); err != nil {
			return nil, err
		}
	}

	e.log.Info().
		Str("metric", metric.Slug).
		Str("thread", req.ThreadID).
		Bool("from_cache", fromCache).
		Int("rows", len(rows)).
		Msg("turn executed")

	return result, nil
}

func (e *Engine) loadContext(ctx context.Context, threadID string) (conversation.Context, int, error) {
	if threadID == "" {
		return conversation.Context{}, 0, nil
	}
	current, _, err := e.conversations.Load(ctx, threadID)
	if err != nil {
		return conversation.Context{}, 0, err
	}
	return current, len(current.History), nil
}

// fetchRows returns the metric's rows for one time window, consulting the
// cache first. Any cache trouble is a forced miss; live execution is the
// source of truth.
func (e *Engine) fetchRows(ctx context.Context, slug string, qi intent.QueryIntent, clientID string) ([]Row, bool, int64, error) {
	rangeValue := qi.TimeRange.Value
	if rangeValue == "" {
		rangeValue = qi.TimeRange.Start + ".." + qi.TimeRange.End
	}
	key := querycache.Key(slug, clientID, qi.Filters, rangeValue, qi.Dimensions)

	if e.cache != nil && key != "" {
		if raw, ok := e.cache.Get(ctx, key); ok {
			var cached cachedResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached.Rows, true, 0, nil
			}
			e.log.Warn().Str("cache_key", key).Msg("undecodable cache payload, treating as miss")
		}
	}

	cq, err := e.compiler.Compile(slug, qi, clientID)
	if err != nil {
		return nil, false, 0, err
	}
	res, err := e.compiler.Execute(ctx, cq)
	if err != nil {
		return nil, false, 0, err
	}

	if e.cache != nil && key != "" {
		if raw, err := json.Marshal(cachedResult{Rows: res.Rows}); err == nil {
			e.cache.Set(ctx, key, slug, clientID, raw, e.cacheTTL)
		}
	}

	return res.Rows, false, res.QueryMs, nil
}

// comparisonChart runs the prior-period variant of the query and overlays
// the two row sets.
func (e *Engine) comparisonChart(ctx context.Context, metric catalog.MetricDefinition, qi intent.QueryIntent, clientID string, currentRows []Row) (*Chart, error) {
	start, end, err := qi.TimeRange.Bounds()
	if err != nil {
		return nil, err
	}

	offset := ""
	if qi.Comparison != nil {
		offset = qi.Comparison.Offset
	}
	priorStart, priorEnd := intent.ResolveComparisonRange(start, end, offset)

	priorRange := &intent.TimeRange{
		Type:  "comparison",
		Value: "cmp:" + priorStart.Format(intent.DateLayout) + ".." + priorEnd.Format(intent.DateLayout),
		Start: priorStart.Format(intent.DateLayout),
		End:   priorEnd.Format(intent.DateLayout),
	}

	priorIntent := qi
	priorIntent.TimeRange = priorRange
	priorRows, _, _, err := e.fetchRows(ctx, metric.Slug, priorIntent, clientID)
	if err != nil {
		return nil, err
	}

	chart := FormatComparison(currentRows, priorRows, qi, metric)
	return &chart, nil
}

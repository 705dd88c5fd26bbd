package querycache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/db"
	"github.com/claimlens/claimlens/internal/intent"
)

func TestKeyDeterministic(t *testing.T) {
	filters := []intent.Filter{
		{Field: "status", Operator: intent.OpEq, Value: "open"},
		{Field: "region", Operator: intent.OpEq, Value: "west"},
	}
	a := Key("claim_volume", "client-1", filters, "last_30_days", []string{"region", "month"})
	b := Key("claim_volume", "client-1", filters, "last_30_days", []string{"region", "month"})
	if a == "" || a != b {
		t.Errorf("Key not deterministic: %q vs %q", a, b)
	}
}

func TestKeyFilterOrderInsensitive(t *testing.T) {
	forward := []intent.Filter{
		{Field: "status", Operator: intent.OpEq, Value: "open"},
		{Field: "region", Operator: intent.OpEq, Value: "west"},
	}
	reversed := []intent.Filter{
		{Field: "region", Operator: intent.OpEq, Value: "west"},
		{Field: "status", Operator: intent.OpEq, Value: "open"},
	}
	if Key("m", "c", forward, "t", nil) != Key("m", "c", reversed, "t", nil) {
		t.Error("filter arrival order changed the key")
	}
}

func TestKeyDimensionOrderSensitive(t *testing.T) {
	a := Key("m", "c", nil, "t", []string{"region", "month"})
	b := Key("m", "c", nil, "t", []string{"month", "region"})
	if a == b {
		t.Error("dimension order should change the key (it drives label composition)")
	}
}

func TestKeyVariesByArguments(t *testing.T) {
	base := Key("m", "c", nil, "last_30_days", nil)
	if Key("m2", "c", nil, "last_30_days", nil) == base {
		t.Error("metric slug not part of the key")
	}
	if Key("m", "c2", nil, "last_30_days", nil) == base {
		t.Error("client id not part of the key")
	}
	if Key("m", "c", nil, "last_7_days", nil) == base {
		t.Error("time range value not part of the key")
	}
}

func setupSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLStore(database, zerolog.New(os.Stderr).Level(zerolog.Disabled))
}

func TestSQLStoreSetGet(t *testing.T) {
	store := setupSQLStore(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"rows":[{"dim_0":"A","value":0.2}]}`)

	key := Key("sla_breach_rate", "client-1", nil, "last_30_days", []string{"adjuster"})
	store.Set(ctx, key, "sla_breach_rate", "client-1", payload, 15*time.Minute)

	got, ok := store.Get(ctx, key)
	if !ok {
		t.Fatal("Get missed a live entry")
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s, want %s", got, payload)
	}
}

func TestSQLStoreMiss(t *testing.T) {
	store := setupSQLStore(t)
	if _, ok := store.Get(context.Background(), "no-such-key"); ok {
		t.Error("Get returned ok for an absent key")
	}
}

func TestSQLStoreExpiry(t *testing.T) {
	store := setupSQLStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	store.now = func() time.Time { return now }

	store.Set(ctx, "k", "m", "c", json.RawMessage(`{}`), 15*time.Minute)
	if _, ok := store.Get(ctx, "k"); !ok {
		t.Fatal("entry should be live within the TTL")
	}

	store.now = func() time.Time { return now.Add(16 * time.Minute) }
	if _, ok := store.Get(ctx, "k"); ok {
		t.Error("entry should read as a miss after expiry")
	}
}

func TestSQLStoreUpsertResetsEntry(t *testing.T) {
	store := setupSQLStore(t)
	ctx := context.Background()

	store.Set(ctx, "k", "m", "c", json.RawMessage(`{"v":1}`), time.Minute)
	store.Set(ctx, "k", "m", "c", json.RawMessage(`{"v":2}`), time.Minute)

	entries, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Stats = %d entries, want exactly one live entry per key", len(entries))
	}
	if entries[0].HitCount != 0 {
		t.Errorf("HitCount = %d, want reset to 0 on upsert", entries[0].HitCount)
	}

	got, ok := store.Get(ctx, "k")
	if !ok {
		t.Fatal("Get missed after upsert")
	}
	if string(got) != `{"v":2}` {
		t.Errorf("payload = %s, want replacement", got)
	}
}

func TestSQLStoreSweepExpired(t *testing.T) {
	store := setupSQLStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	store.now = func() time.Time { return now }
	store.Set(ctx, "stale", "m", "c", json.RawMessage(`{}`), time.Minute)
	store.Set(ctx, "live", "m", "c", json.RawMessage(`{}`), time.Hour)

	store.now = func() time.Time { return now.Add(30 * time.Minute) }
	n, err := store.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("SweepExpired removed %d entries, want 1", n)
	}
	if _, ok := store.Get(ctx, "live"); !ok {
		t.Error("sweep removed a live entry")
	}
}

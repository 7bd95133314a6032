package daily

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalobadob/orbline/assets"
	"github.com/robalobadob/orbline/internal/store"
)

func TestSeedDeterministic(t *testing.T) {
	a := Seed("2026-10-14", "salt")
	if a != Seed("2026-10-14", "salt") {
		t.Fatalf("seed is not stable")
	}
	if a == Seed("2026-10-15", "salt") {
		t.Fatalf("consecutive days share a seed")
	}
	if a == Seed("2026-10-14", "pepper") {
		t.Fatalf("salt does not affect the seed")
	}
}

func TestSeedForUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	local := time.Date(2026, 10, 15, 5, 0, 0, 0, loc) // still the 14th in UTC
	if got := DateKey(local); got != "2026-10-14" {
		t.Fatalf("date key = %s", got)
	}
	if SeedFor(local, "s") != Seed("2026-10-14", "s") {
		t.Fatalf("SeedFor disagrees with Seed")
	}
}

func TestResultsAndLeaderboard(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "daily.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	s := NewStore(db)
	const date = "2026-10-14"

	results := []Result{
		{UserID: "slow", Date: date, Score: 40, PlayTimeMs: 90_000},
		{UserID: "fast", Date: date, Score: 40, PlayTimeMs: 30_000},
		{UserID: "best", Date: date, Score: 75, PlayTimeMs: 200_000},
		{UserID: "best", Date: "2026-10-13", Score: 999, PlayTimeMs: 1},
	}
	for _, r := range results {
		if err := s.InsertResult(ctx, r); err != nil {
			t.Fatalf("insert %+v: %v", r, err)
		}
	}
	// a replay of the same day is ignored
	if err := s.InsertResult(ctx, Result{UserID: "slow", Date: date, Score: 500}); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	played, err := s.AlreadyPlayed(ctx, "fast", date)
	if err != nil || !played {
		t.Fatalf("played=%v err=%v", played, err)
	}
	played, err = s.AlreadyPlayed(ctx, "nobody", date)
	if err != nil || played {
		t.Fatalf("nobody played=%v err=%v", played, err)
	}

	top, err := s.Leaderboard(ctx, date, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var order []string
	for _, r := range top {
		order = append(order, r.UserID)
	}
	want := []string{"best", "fast", "slow"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if top[2].Score != 40 {
		t.Fatalf("duplicate overwrote the first result: %+v", top[2])
	}
}

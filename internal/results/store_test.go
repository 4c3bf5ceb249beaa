package results

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/memory/assets"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	migrations, err := assets.Migrations()
	if err != nil {
		t.Fatal(err)
	}
	applied, err := Migrate(context.Background(), db, migrations)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_init.sql" {
		t.Fatalf("applied = %v", applied)
	}
	// Second run must be a no-op.
	if applied, err := Migrate(context.Background(), db, migrations); err != nil || len(applied) != 0 {
		t.Fatalf("Migrate again = %v, %v", applied, err)
	}
	return db
}

func addUser(t *testing.T, db *sql.DB, id, name string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, name, "x", time.Now().UTC().Format(time.RFC3339)); err != nil {
		t.Fatal(err)
	}
}

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func play(t *testing.T, s *Store, g Game, status string, mistakes int, elapsed time.Duration) {
	t.Helper()
	ctx := context.Background()
	if err := s.Start(ctx, g); err != nil {
		t.Fatalf("Start(%s): %v", g.ID, err)
	}
	if status == "" {
		return
	}
	if err := s.Finish(ctx, Outcome{ID: g.ID, Status: status, Mistakes: mistakes, Elapsed: elapsed, FinishedAt: g.StartedAt.Add(elapsed)}); err != nil {
		t.Fatalf("Finish(%s): %v", g.ID, err)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	db := openTestDB(t)
	s := NewStore(db)
	addUser(t, db, "u1", "alice")
	ctx := context.Background()

	play(t, s, Game{ID: "g1", UserID: "u1", Size: 4, StartedAt: t0}, "won", 2, 40*time.Second)
	play(t, s, Game{ID: "g2", AnonID: "a1", Size: 4, StartedAt: t0}, "won", 0, 30*time.Second)
	play(t, s, Game{ID: "g3", UserID: "u1", Size: 4, StartedAt: t0}, "won", 1, 40*time.Second)
	play(t, s, Game{ID: "g4", UserID: "u1", Size: 4, StartedAt: t0}, "lost", 3, 10*time.Second)
	play(t, s, Game{ID: "g5", UserID: "u1", Size: 6, StartedAt: t0}, "won", 0, 5*time.Second)
	play(t, s, Game{ID: "g6", UserID: "u1", Size: 4, StartedAt: t0}, "", 0, 0)

	rows, err := s.Leaderboard(ctx, 4, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d; want 3 (%+v)", len(rows), rows)
	}
	if rows[0].Player != "guest" || rows[0].ElapsedMs != 30000 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Mistakes != 1 || rows[2].Mistakes != 2 || rows[1].Player != "alice" {
		t.Errorf("tie-break by mistakes failed: %+v", rows[1:])
	}
}

func TestFinishBumpsStatsOnce(t *testing.T) {
	db := openTestDB(t)
	s := NewStore(db)
	addUser(t, db, "u1", "alice")
	ctx := context.Background()

	play(t, s, Game{ID: "g1", UserID: "u1", Size: 4, StartedAt: t0}, "won", 0, time.Second)
	play(t, s, Game{ID: "g2", UserID: "u1", Size: 4, StartedAt: t0}, "won", 0, time.Second)
	// Repeated finish must not count twice.
	if err := s.Finish(ctx, Outcome{ID: "g2", Status: "won", FinishedAt: t0}); err != nil {
		t.Fatal(err)
	}

	st, err := s.StatsFor(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if st != (Stats{GamesPlayed: 2, Wins: 2, Streak: 2}) {
		t.Errorf("stats = %+v", st)
	}

	play(t, s, Game{ID: "g3", UserID: "u1", Size: 4, StartedAt: t0}, "lost", 3, time.Second)
	st, _ = s.StatsFor(ctx, "u1")
	if st != (Stats{GamesPlayed: 3, Wins: 2, Streak: 0}) {
		t.Errorf("stats after loss = %+v", st)
	}
}

func TestClaimAnonAndMine(t *testing.T) {
	db := openTestDB(t)
	s := NewStore(db)
	addUser(t, db, "u1", "alice")
	ctx := context.Background()

	play(t, s, Game{ID: "g1", AnonID: "a1", Size: 4, StartedAt: t0}, "won", 1, 20*time.Second)
	play(t, s, Game{ID: "g2", AnonID: "a1", Size: 2, StartedAt: t0.Add(time.Minute)}, "", 0, 0)
	play(t, s, Game{ID: "g3", AnonID: "other", Size: 4, StartedAt: t0}, "", 0, 0)

	n, err := s.ClaimAnon(ctx, "a1", "u1")
	if err != nil || n != 2 {
		t.Fatalf("ClaimAnon = %d, %v; want 2", n, err)
	}
	if n, _ := s.ClaimAnon(ctx, "", "u1"); n != 0 {
		t.Errorf("ClaimAnon with empty anon id = %d", n)
	}

	mine, err := s.Mine(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].ID != "g2" || mine[0].Status != "playing" {
		t.Fatalf("mine = %+v", mine)
	}
	if mine[1].ElapsedMs != 20000 || mine[1].FinishedAt == "" {
		t.Errorf("finished row = %+v", mine[1])
	}
}

// internal/results/store.go
//
// SQLite-backed history of hosted games.
// Responsibilities:
//   - One games row per session, written at creation (Start) and completed on a terminal status (Finish).
//   - Per-user counters (games played, wins, current streak) bumped in the same tx as Finish.
//   - Leaderboard of won games per board size: fastest first, then fewest mistakes, then earliest finish.
//   - Attaching a guest's games to an account after signup/login (ClaimAnon).

package results

import (
	"context"
	"database/sql"
	"time"
)

// Game is the row written when a session starts. Exactly one of UserID/AnonID is set.
type Game struct {
	ID        string
	UserID    string
	AnonID    string
	Size      int
	StartedAt time.Time
}

// Outcome completes a game row.
type Outcome struct {
	ID         string
	Status     string // won | lost
	Mistakes   int
	Elapsed    time.Duration
	FinishedAt time.Time
}

// LBRow is one leaderboard entry.
type LBRow struct {
	Player     string `json:"player"`
	Mistakes   int    `json:"mistakes"`
	ElapsedMs  int64  `json:"elapsedMs"`
	FinishedAt string `json:"finishedAt"`
}

// GameRow is one entry of a user's history.
type GameRow struct {
	ID         string `json:"id"`
	Size       int    `json:"size"`
	Status     string `json:"status"`
	Mistakes   int    `json:"mistakes"`
	ElapsedMs  int64  `json:"elapsedMs,omitempty"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// Stats are the per-user counters.
type Stats struct {
	GamesPlayed int `json:"gamesPlayed"`
	Wins        int `json:"wins"`
	Streak      int `json:"streak"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Start inserts the row for a new game.
func (s *Store) Start(ctx context.Context, g Game) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, user_id, anonymous_id, board_size, status, mistakes, started_at)
		 VALUES (?,?,?,?, 'playing', 0, ?)`,
		g.ID, nullable(g.UserID), nullable(g.AnonID), g.Size, g.StartedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Finish records the outcome and, for signed-in players, bumps their counters.
// Finishing an already finished game is a no-op.
func (s *Store) Finish(ctx context.Context, o Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE games SET status=?, mistakes=?, elapsed_ms=?, finished_at=?
		 WHERE id=? AND status='playing'`,
		o.Status, o.Mistakes, o.Elapsed.Milliseconds(), o.FinishedAt.UTC().Format(time.RFC3339), o.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	var userID sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT user_id FROM games WHERE id=?`, o.ID).Scan(&userID); err != nil {
		return err
	}
	if userID.Valid {
		if err := bumpStats(ctx, tx, userID.String, o.Status == "won"); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// bumpStats increments games played; updates wins and streak based on result (within tx).
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, won bool) error {
	var gp, wins, streak int
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
	} else {
		streak = 0
	}
	_, err := tx.ExecContext(ctx, `UPDATE users SET games_played=?, wins=?, streak=? WHERE id=?`, gp, wins, streak, userID)
	return err
}

// Leaderboard returns the best won games on boards of the given size.
func (s *Store) Leaderboard(ctx context.Context, size, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(u.username, 'guest'), g.mistakes, g.elapsed_ms, g.finished_at
		 FROM games g LEFT JOIN users u ON u.id = g.user_id
		 WHERE g.board_size=? AND g.status='won'
		 ORDER BY g.elapsed_ms ASC, g.mistakes ASC, g.finished_at ASC
		 LIMIT ?`, size, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.Player, &r.Mistakes, &r.ElapsedMs, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Mine lists a user's most recent games.
func (s *Store) Mine(ctx context.Context, userID string, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, board_size, status, mistakes, COALESCE(elapsed_ms, 0), started_at, COALESCE(finished_at, '')
		 FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameRow{}
	for rows.Next() {
		var g GameRow
		if err := rows.Scan(&g.ID, &g.Size, &g.Status, &g.Mistakes, &g.ElapsedMs, &g.StartedAt, &g.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ClaimAnon moves a guest's games to a user account.
func (s *Store) ClaimAnon(ctx context.Context, anonID, userID string) (int64, error) {
	if anonID == "" || userID == "" {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StatsFor loads a user's counters.
func (s *Store) StatsFor(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT games_played, wins, streak FROM users WHERE id=?`, userID,
	).Scan(&st.GamesPlayed, &st.Wins, &st.Streak)
	return st, err
}

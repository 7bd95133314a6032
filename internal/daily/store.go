package daily

import (
	"context"
	"database/sql"
)

// Result is one finished daily game.
type Result struct {
	UserID     string `json:"userId"`
	Date       string `json:"date"`
	Score      uint   `json:"score"`
	PlayTimeMs int64  `json:"playTimeMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r. A second result for the same user and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, score, play_time_ms)
        VALUES(?,?,?,?)`, r.UserID, r.Date, r.Score, r.PlayTimeMs,
	)
	return err
}

type LBRow struct {
	UserID     string `json:"userId"`
	Username   string `json:"username,omitempty"`
	Score      uint   `json:"score"`
	PlayTimeMs int64  `json:"playTimeMs"`
}

// Leaderboard returns the best results for date: highest score first, then
// the shortest play time, then the earliest finish.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.user_id, COALESCE(u.username, ''), d.score, d.play_time_ms
        FROM daily_results d
        LEFT JOIN users u ON u.id = d.user_id
        WHERE d.date=?
        ORDER BY d.score DESC, d.play_time_ms ASC, d.created_at ASC
        LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.Score, &r.PlayTimeMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package tracker

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	ts "sfneuman.com/nearmiss/timestep"
)

// History persists per-episode statistics to a SQLite database so runs
// can be compared and queried after the fact
type History struct {
	db  *sql.DB
	run string
}

// NewHistory opens (or creates) the database at path and ensures the
// episodes table exists. The run label distinguishes multiple training
// runs sharing one database file.
func NewHistory(path, run string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("newhistory: could not open database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS episodes(
			run        TEXT NOT NULL,
			episode    INTEGER NOT NULL,
			episode_return REAL NOT NULL,
			running    REAL NOT NULL,
			avg_speed  REAL NOT NULL,
			collided   INTEGER NOT NULL,
			steps      INTEGER NOT NULL,
			PRIMARY KEY(run, episode)
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("newhistory: could not create episodes "+
			"table: %v", err)
	}

	return &History{db: db, run: run}, nil
}

// Track implements Tracker. Only episode summaries are persisted.
func (h *History) Track(ts.TimeStep) {}

// EndEpisode inserts the episode's summary row
func (h *History) EndEpisode(stats Stats) error {
	collided := 0
	if stats.Collided {
		collided = 1
	}

	_, err := h.db.Exec(`
		INSERT OR REPLACE INTO
			episodes(run, episode, episode_return, running, avg_speed, collided, steps)
		VALUES(?,?,?,?,?,?,?)`,
		h.run, stats.Episode, stats.Return, stats.Running, stats.AvgSpeed,
		collided, stats.Steps)
	if err != nil {
		return fmt.Errorf("endepisode: could not insert episode %v: %v",
			stats.Episode, err)
	}
	return nil
}

// Close closes the underlying database
func (h *History) Close() error {
	return h.db.Close()
}

// Returns reads back the per-episode returns stored for this tracker's
// run, ordered by episode
func (h *History) Returns() ([]float64, error) {
	rows, err := h.db.Query(`
		SELECT episode_return FROM episodes WHERE run = ? ORDER BY episode`, h.run)
	if err != nil {
		return nil, fmt.Errorf("returns: could not query episodes: %v", err)
	}
	defer rows.Close()

	var returns []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("returns: could not scan row: %v", err)
		}
		returns = append(returns, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("returns: %v", err)
	}
	return returns, nil
}

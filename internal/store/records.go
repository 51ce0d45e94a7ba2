package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"aimafia/internal/logging"

	_ "modernc.org/sqlite"
)

// PlayerResult is one seat in a finished game.
type PlayerResult struct {
	Name     string
	Role     string
	Survived bool
	Provider string
	Model    string
}

// GameRecord is the persisted outcome of one game.
type GameRecord struct {
	ID       string
	Winner   string // "Town", "Mafia", or "" for a draw
	Turns    int
	Started  time.Time
	Finished time.Time
	// Digest is the blake3 hash of the transcript file.
	Digest  string
	Players []PlayerResult
}

// RecordStore keeps game records in sqlite.
type RecordStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// OpenRecordStore opens (creating if needed) the game database at path.
// The special path ":memory:" opens a private in-memory database.
func OpenRecordStore(path string) (*RecordStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryStore).Debug("failed to set busy_timeout: %v", err)
	}

	s := &RecordStore{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("game records at %s", path)
	return s, nil
}

func (s *RecordStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		winner TEXT NOT NULL DEFAULT '',
		turns INTEGER NOT NULL,
		started_at DATETIME,
		finished_at DATETIME,
		transcript_digest TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS game_players (
		game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		seat INTEGER NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		survived INTEGER NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (game_id, seat)
	);
	CREATE INDEX IF NOT EXISTS idx_game_players_name ON game_players(name);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create game tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// Save writes a record and its players in one transaction.
func (s *RecordStore) Save(ctx context.Context, rec GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, winner, turns, started_at, finished_at, transcript_digest) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Winner, rec.Turns, rec.Started.UTC(), rec.Finished.UTC(), rec.Digest)
	if err != nil {
		return fmt.Errorf("insert game %s: %w", rec.ID, err)
	}
	for i, p := range rec.Players {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, seat, name, role, survived, provider, model) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, p.Name, p.Role, p.Survived, p.Provider, p.Model)
		if err != nil {
			return fmt.Errorf("insert player %s: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logging.Store("saved game %s (winner=%q, turns=%d)", rec.ID, rec.Winner, rec.Turns)
	return nil
}

// PlayerStats aggregates one player's games.
type PlayerStats struct {
	Name       string
	Games      int
	Wins       int
	Survived   int
	MafiaGames int
	MafiaWins  int
	TownGames  int
	TownWins   int
}

// WinRate is the percentage of games won.
func (p PlayerStats) WinRate() float64 { return pct(p.Wins, p.Games) }

// SurvivalRate is the percentage of games survived.
func (p PlayerStats) SurvivalRate() float64 { return pct(p.Survived, p.Games) }

// MafiaWinRate is the win percentage when seated as Mafia.
func (p PlayerStats) MafiaWinRate() float64 { return pct(p.MafiaWins, p.MafiaGames) }

// TownWinRate is the win percentage when seated as Town.
func (p PlayerStats) TownWinRate() float64 { return pct(p.TownWins, p.TownGames) }

// Summary is the aggregate over all recorded games.
type Summary struct {
	Games     int
	MafiaWins int
	TownWins  int
	Draws     int
	AvgTurns  float64
	// Players is sorted by win rate, highest first.
	Players []PlayerStats
}

func pct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// Stats aggregates every recorded game.
func (s *RecordStore) Stats(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum Summary
	var turns sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(winner = 'Mafia'), 0),
		       COALESCE(SUM(winner = 'Town'), 0),
		       COALESCE(SUM(winner = ''), 0),
		       AVG(turns)
		FROM games`).Scan(&sum.Games, &sum.MafiaWins, &sum.TownWins, &sum.Draws, &turns)
	if err != nil {
		return Summary{}, fmt.Errorf("query games: %w", err)
	}
	sum.AvgTurns = turns.Float64

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.role, p.survived, g.winner
		FROM game_players p JOIN games g ON g.id = p.game_id`)
	if err != nil {
		return Summary{}, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*PlayerStats)
	for rows.Next() {
		var name, role, winner string
		var survived bool
		if err := rows.Scan(&name, &role, &survived, &winner); err != nil {
			return Summary{}, fmt.Errorf("scan player: %w", err)
		}
		ps := byName[name]
		if ps == nil {
			ps = &PlayerStats{Name: name}
			byName[name] = ps
		}
		ps.Games++
		if survived {
			ps.Survived++
		}
		if role == "Mafia" {
			ps.MafiaGames++
			if winner == "Mafia" {
				ps.MafiaWins++
				ps.Wins++
			}
		} else {
			ps.TownGames++
			if winner == "Town" {
				ps.TownWins++
				ps.Wins++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	for _, ps := range byName {
		sum.Players = append(sum.Players, *ps)
	}
	sort.Slice(sum.Players, func(i, j int) bool {
		a, b := sum.Players[i], sum.Players[j]
		if a.WinRate() != b.WinRate() {
			return a.WinRate() > b.WinRate()
		}
		return a.Name < b.Name
	})
	return sum, nil
}

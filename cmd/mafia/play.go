package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"aimafia/internal/agent"
	"aimafia/internal/console"
	"aimafia/internal/engine"
	"aimafia/internal/game"
	"aimafia/internal/narration"
	"aimafia/internal/perception"
	"aimafia/internal/store"
	"aimafia/internal/ux"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seed        int64
	games       int
	noNarration bool
	step        bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play one or more games with the configured roster",
	Long: `Seats the active roster, deals roles and plays until one side wins.

Press Enter during a game to pause or resume. With --step (or
game.auto_continue: false) the game waits for Enter before every turn.`,
	RunE: runPlay,
}

func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: game.seed, then time-based)")
	cmd.Flags().IntVarP(&games, "games", "n", 1, "Number of games to play back to back")
	cmd.Flags().BoolVar(&noNarration, "no-narration", false, "Disable text-to-speech narration")
	cmd.Flags().BoolVar(&step, "step", false, "Wait for Enter before every turn")
}

func runPlay(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("seed") {
		cfg.Game.Seed = seed
	}
	if step {
		cfg.Game.AutoContinue = false
	}
	if noNarration {
		cfg.Narration.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	records, err := store.OpenRecordStore(cfg.Store.Database)
	if err != nil {
		return err
	}
	defer records.Close()

	s := cfg.Game.Seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(s))
	logger.Info("Starting session", zap.Int64("seed", s), zap.Int("games", games))

	var con *console.Console
	if console.IsInteractive() {
		con = console.New(os.Stdin, os.Stdout, !cfg.Game.AutoContinue)
	}

	for i := 0; i < games; i++ {
		if err := playOne(ctx, rng, con, records); err != nil {
			return err
		}
	}
	return nil
}

func playOne(ctx context.Context, rng *rand.Rand, con *console.Console, records *store.RecordStore) error {
	seats, human, err := buildSeats(ctx, con)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Rand:              rng,
		RevealRoles:       cfg.Game.RevealRoleOnDeath,
		WithCop:           cfg.Game.CopEnabled,
		MaxDays:           cfg.Game.MaxDays,
		VoteWorkers:       cfg.Game.VoteWorkers,
		ReflectionWorkers: cfg.Game.ReflectionWorkers,
		NarratorVoice:     cfg.Narration.NarratorVoice,
		NarrateSecrets:    human == "",
		Narrator:          narration.Silent{},
	}
	if cfg.Narration.Enabled {
		opts.Narrator = narration.NewCommand(narration.CommandConfig{
			Command: cfg.Narration.Command,
			Rate:    cfg.Narration.Rate,
		})
	}
	if con != nil {
		opts.Gate = con
	}
	if cfg.Game.MemoryEnabled {
		opts.Memory = store.NewFileMemory(filepath.Join(cfg.Store.Dir, "memories"))
	}

	var eng *engine.Engine
	var viewer func() game.Role
	if human != "" {
		viewer = func() game.Role {
			role, _ := eng.Role(human)
			return role
		}
	}
	renderer := ux.NewTranscriptRenderer(os.Stdout, ux.DetectTheme(), viewer)
	opts.Observer = renderer

	eng, err = engine.New(seats, opts)
	if err != nil {
		return err
	}

	res, runErr := eng.Run(ctx)
	renderer.Result(res.Winner, res.Players)

	if err := persist(ctx, records, res); err != nil {
		logger.Error("Failed to persist game", zap.String("game", res.GameID), zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}
	logger.Info("Game finished",
		zap.String("game", res.GameID),
		zap.String("winner", string(res.Winner)),
		zap.Int("days", res.Turns),
		zap.Int("failures", res.Failures),
		zap.Duration("duration", res.Finished.Sub(res.Started)))
	return nil
}

// buildSeats turns the active roster into engine seats. It returns the
// human's name, or "" when only agents play.
func buildSeats(ctx context.Context, con *console.Console) ([]engine.Seat, string, error) {
	var sink perception.TraceStore
	if cfg.Logging.DebugArtifacts {
		sink = store.NewDebugSink(filepath.Join(cfg.Store.Dir, "debug"))
	}

	var seats []engine.Seat
	human := ""
	for _, entry := range cfg.ActiveRoster() {
		var p agent.Player
		if entry.IsHuman() {
			if con == nil {
				return nil, "", fmt.Errorf("roster seats human %q but stdin is not a terminal", entry.Name)
			}
			p = agent.NewHumanPlayer(entry.Name, entry.Voice, con)
			human = entry.Name
		} else {
			client, err := perception.NewClientFromEntry(ctx, entry, cfg)
			if err != nil {
				return nil, "", fmt.Errorf("player %s: %w", entry.Name, err)
			}
			if sink != nil {
				client = perception.NewTracingLLMClient(client, sink)
			}
			p = agent.NewAgentPlayer(entry.Name, entry.Voice, client, cfg.GetMaxAttempts(), cfg.GetRetryDelay())
		}
		logger.Debug("Seated player", zap.String("name", entry.Name), zap.String("backend", perception.Describe(entry)))
		seats = append(seats, engine.Seat{
			Player:   p,
			Prefer:   entry.RolePreference(),
			Provider: entry.Provider,
			Model:    entry.Model,
		})
	}
	return seats, human, nil
}

// persist writes the transcript and the game record.
func persist(ctx context.Context, records *store.RecordStore, res engine.Result) error {
	if len(res.Transcript) == 0 {
		return nil
	}
	path, digest, err := store.WriteTranscript(cfg.Store.Dir, res.GameID, res.Transcript)
	if err != nil {
		return err
	}
	logger.Info("Transcript written", zap.String("path", path))

	rec := store.GameRecord{
		ID:       res.GameID,
		Winner:   string(res.Winner),
		Turns:    res.Turns,
		Started:  res.Started,
		Finished: res.Finished,
		Digest:   digest,
	}
	for _, p := range res.Players {
		rec.Players = append(rec.Players, store.PlayerResult{
			Name:     p.Name,
			Role:     string(p.Role),
			Survived: p.Alive,
			Provider: p.Provider,
			Model:    p.Model,
		})
	}
	// A cancelled game still gets its record.
	return records.Save(context.WithoutCancel(ctx), rec)
}

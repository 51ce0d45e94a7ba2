package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"aimafia/internal/config"
	"aimafia/internal/perception"
	"aimafia/internal/store"
	"aimafia/internal/ux"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show win and survival rates from recorded games",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := store.OpenRecordStore(cfg.Store.Database)
		if err != nil {
			return err
		}
		defer records.Close()

		sum, err := records.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return writeStats(os.Stdout, sum, ux.DetectTheme())
	},
}

func writeStats(w io.Writer, sum store.Summary, theme ux.Theme) error {
	if sum.Games == 0 {
		_, err := fmt.Fprintln(w, "No games recorded yet.")
		return err
	}
	fmt.Fprintf(w, "Games: %d  Mafia wins: %d  Town wins: %d  Draws: %d  Avg days: %.1f\n\n",
		sum.Games, sum.MafiaWins, sum.TownWins, sum.Draws, sum.AvgTurns)

	t := ux.NewTable("Players", "Name", "GP", "Win%", "Surv%", "Mafia Win%", "Town Win%")
	for _, p := range sum.Players {
		t.AddRow(p.Name, strconv.Itoa(p.Games), percent(p.WinRate()), percent(p.SurvivalRate()),
			percent(p.MafiaWinRate()), percent(p.TownWinRate()))
	}
	return t.Render(w, theme)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List roster entries and the backend each would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeRoster(os.Stdout, cfg.Roster, ux.DetectTheme())
	},
}

func writeRoster(w io.Writer, roster []config.RosterEntry, theme ux.Theme) error {
	t := ux.NewTable("Roster", "Name", "Active", "Backend", "Role", "Voice")
	for _, e := range roster {
		active := "no"
		if e.Active {
			active = "yes"
		}
		t.AddRow(e.Name, active, perception.Describe(e), e.RolePreference(), e.Voice)
	}
	return t.Render(w, theme)
}

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	// Skip config loading; the file may not exist yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config")
}


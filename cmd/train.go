package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sfneuman.com/nearmiss/checkpoint"
	"sfneuman.com/nearmiss/config"
	"sfneuman.com/nearmiss/policy"
	"sfneuman.com/nearmiss/scenario"
	"sfneuman.com/nearmiss/sim/kinematic"
	"sfneuman.com/nearmiss/tracker"
	"sfneuman.com/nearmiss/trainer"
)

// egoSpeed is the cruising speed of the stand-in EGO in m/s
var egoSpeed float64

// TrainCommand returns the train subcommand, which runs a full
// training run against the in-process kinematic simulator
func TrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run a training run against the kinematic simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return train()
		},
	}
	cmd.PersistentFlags().Float64Var(&egoSpeed, "ego-speed", 8.0,
		"Cruising speed of the stand-in EGO in m/s")
	return cmd
}

func train() error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("train: %v", err)
		}
	}
	if episodes > 0 {
		cfg.Episodes = episodes
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("train: %v", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("train: could not create output directory: %v", err)
	}

	session, loaded, err := trainer.NewSession(cfg)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	switch loaded {
	case checkpoint.Loaded:
		fmt.Println("Using pretrained weights.")
	case checkpoint.Invalid:
		fmt.Println("Stored weights unusable, starting fresh.")
	}

	trackers, logFile, err := buildTrackers(cfg)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	defer logFile.Close()

	runner := scenario.NewRunner(cfg, kinematic.New(egoSpeed), session,
		policy.NewCategorical(cfg.Seed), trackers)
	runner.ShowProgress = true

	if err := runner.Run(); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	fmt.Println()
	return nil
}

// buildTrackers wires the run's trackers: the episode table log, the
// gob return record, the SQLite episode history, and the reward curve
// plot. The returned file backs the log tracker and outlives the run.
func buildTrackers(cfg config.Config) ([]tracker.Tracker, *os.File, error) {
	logFile, err := os.OpenFile(filepath.Join(outDir, "ac-log.txt"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file: %v", err)
	}

	logTracker, err := tracker.NewLog(logFile, cfg.LogInterval)
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}

	run := fmt.Sprintf("seed-%v", cfg.Seed)
	history, err := tracker.NewHistory(
		filepath.Join(outDir, "episodes.db"), run)
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}

	trackers := []tracker.Tracker{
		logTracker,
		history,
		tracker.NewReturn(filepath.Join(outDir, "returns.bin")),
		tracker.NewRewardPlot(filepath.Join(outDir, "rewards.png")),
	}
	return trackers, logFile, nil
}

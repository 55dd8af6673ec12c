// Package cmd defines the command line interface of the training
// binary
package cmd

import "github.com/spf13/cobra"

var (
	configPath string
	episodes   int
	seed       uint64
	outDir     string
)

// GetRootCommand returns the root command line argument parser with
// all subcommands attached
func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "nearmiss",
		Short: "Train an adversarial NPC driving policy",
	}
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c",
		"", "Path to a JSON config file; defaults apply when empty")
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 0,
		"Number of episodes to run; zero keeps the config's value")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", 0,
		"Random seed; zero keeps the config's value")
	rootCommand.PersistentFlags().StringVarP(&outDir, "out", "o",
		"results", "Directory for logs, plots, and episode history")
	rootCommand.AddCommand(TrainCommand())
	return rootCommand
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Cyclone1070/polish/internal/config"
	"github.com/Cyclone1070/polish/internal/logging"
	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"github.com/Cyclone1070/polish/internal/vcs"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Dependencies holds the components the commands are built from.
type Dependencies struct {
	LoadConfig    func(path string) (*config.Config, error)
	OpenLog       func(cfg config.LogConfig) (*logging.Channel, error)
	CheckWorktree func(path string) error
	NewProvider   func(ctx context.Context, cfg config.ProviderConfig, apiKey string) (provider.Provider, error)
	Getenv        func(key string) string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal reports whether stdout is interactive; TerminalWidth
	// returns its width or 0.
	IsTerminal    func() bool
	TerminalWidth func() int
}

func defaultDependencies() Dependencies {
	return Dependencies{
		LoadConfig:    loadConfig,
		OpenLog:       logging.Open,
		CheckWorktree: vcs.RequireClean,
		NewProvider:   newProvider,
		Getenv:        os.Getenv,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
		TerminalWidth: func() int {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				return 0
			}
			return w
		},
	}
}

// loadConfig reads path, or the default location when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.NewLoader().LoadFile(path)
}

func newRootCommand(deps Dependencies) *cobra.Command {
	root := &cobra.Command{
		Use:           "polish",
		Short:         "Improve text in place with a language model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(deps.Stdin)
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)

	root.AddCommand(newImproveCommand(deps))
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "polish %s\n", version)
		},
	}
}

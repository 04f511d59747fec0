package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Cyclone1070/polish/internal/config"
	"github.com/Cyclone1070/polish/internal/document"
	"github.com/Cyclone1070/polish/internal/fsutil"
	"github.com/Cyclone1070/polish/internal/orchestrator"
	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"github.com/Cyclone1070/polish/internal/tokens"
	"github.com/Cyclone1070/polish/internal/ui"
	"github.com/Cyclone1070/polish/internal/ui/services"
	"github.com/Cyclone1070/polish/internal/workflow"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// improveOptions are the flags of the improve command.
type improveOptions struct {
	selects    []string
	cursors    []string
	provider   string
	model      string
	configPath string
	noTUI      bool
	diff       bool
	force      bool
	debug      bool
}

func newImproveCommand(deps Dependencies) *cobra.Command {
	var opts improveOptions
	cmd := &cobra.Command{
		Use:   "improve FILE",
		Short: "Improve selections of FILE in place",
		Long: `Improve sends each selection of FILE to the model, top to bottom, and
replaces it with the improved text. Indentation and blank lines around each
selection are kept. Without --select or --cursor the whole file is improved.

Positions are 1-based LINE:COLUMN. A cursor improves its whole line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImprove(cmd.Context(), deps, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.selects, "select", nil, "selection to improve, START-END as L:C-L:C or L-L (repeatable)")
	f.StringArrayVar(&opts.cursors, "cursor", nil, "cursor position L:C whose line is improved (repeatable)")
	f.StringVar(&opts.provider, "provider", "", "completion provider: openai or gemini")
	f.StringVar(&opts.model, "model", "", "model name")
	f.StringVarP(&opts.configPath, "config", "c", "", "config file path (default ~/.config/polish/config.yaml)")
	f.BoolVar(&opts.noTUI, "no-tui", false, "print plain progress lines instead of the interactive view")
	f.BoolVar(&opts.diff, "diff", false, "print a diff of the changes")
	f.BoolVar(&opts.force, "force", false, "skip the clean worktree check")
	f.BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	return cmd
}

func runImprove(ctx context.Context, deps Dependencies, path string, opts improveOptions) error {
	cfg, err := deps.LoadConfig(opts.configPath)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	if opts.provider != "" {
		cfg.Provider.Name = opts.provider
	}
	if opts.model != "" {
		cfg.Provider.Model = opts.model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCh, err := deps.OpenLog(cfg.Log)
	if err != nil {
		return errors.Errorf("opening log: %w", err)
	}
	defer logCh.Close()
	if opts.debug {
		logCh.SetLevel(zerolog.DebugLevel)
	}
	ctx = logCh.WithContext(ctx)
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("file", path).Str("provider", cfg.Provider.Name).Str("model", cfg.Provider.Model).Msg("improve started")

	if cfg.Safety.RequireCleanWorktree && !opts.force {
		if err := deps.CheckWorktree(path); err != nil {
			return errors.Errorf("%w (commit first or pass --force)", err)
		}
	}

	doc, err := document.OpenFile(path, fsutil.NewOSFileSystem(), fsutil.NewChecksumManager(), cfg.Document.MaxFileSize)
	if err != nil {
		return err
	}
	if err := addSelections(doc, opts.selects, opts.cursors); err != nil {
		return err
	}

	key, err := apiKey(cfg.Provider, deps.Getenv)
	if err != nil {
		return err
	}
	p, err := deps.NewProvider(ctx, cfg.Provider, key)
	if err != nil {
		return err
	}

	summary, runErr := execute(ctx, deps, cfg, doc, p, opts)
	if summary != nil {
		logger.Info().
			Stringer("phase", summary.Phase).
			Int("applied", summary.Applied).
			Int("discarded", summary.Discarded).
			Int("skipped", summary.Skipped).
			Int64("total_tokens", summary.Usage.TotalTokens).
			Float64("estimated_cost", summary.Usage.EstimatedCost).
			Msg("improve finished")
		report(deps, cfg, doc, summary, opts)
	}
	if runErr != nil {
		logger.Error().Err(runErr).Msg("improve failed")
	}
	return runErr
}

// execute runs the orchestrator alongside the progress view.
func execute(ctx context.Context, deps Dependencies, cfg *config.Config, doc *document.File, p provider.Provider, opts improveOptions) (*orchestrator.Summary, error) {
	events := make(chan workflow.Event, 64)
	orch := orchestrator.New(orchestrator.Dependencies{
		Document:         doc,
		Provider:         p,
		Tokens:           tokens.NewEstimator(),
		Events:           events,
		MaxResponseBytes: cfg.Stream.MaxResponseBytes,
		GenerateConfig: &provider.GenerateConfig{
			Temperature:     cfg.Provider.Temperature,
			MaxOutputTokens: cfg.Provider.MaxOutputTokens,
		},
	})

	g, gctx := errgroup.WithContext(ctx)

	var summary *orchestrator.Summary
	var runErr error
	g.Go(func() error {
		defer close(events)
		summary, runErr = orch.Run(gctx)
		return nil
	})

	if opts.noTUI || !deps.IsTerminal() {
		reporter := ui.NewReporter(deps.Stderr)
		g.Go(func() error {
			reporter.Run(events)
			return nil
		})
	} else {
		view := ui.NewUI(events, orch.Cancel, ui.Options{
			Config: cfg.UI,
			Input:  deps.Stdin,
			Output: deps.Stdout,
		})
		g.Go(func() error {
			if err := view.Start(); err != nil {
				orch.Cancel()
				return errors.Errorf("running UI: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, runErr
}

// report prints the summary line and, on request, the diff.
func report(deps Dependencies, cfg *config.Config, doc *document.File, summary *orchestrator.Summary, opts improveOptions) {
	out := deps.Stdout
	fmt.Fprintln(out, services.FormatSummary(summary))

	diff, added, removed := doc.Diff()
	if diff == "" {
		return
	}
	fmt.Fprintln(out, services.DiffStat(filepath.Base(doc.Path()), added, removed))
	if !opts.diff {
		return
	}
	style := cfg.UI.DiffStyle
	if !deps.IsTerminal() {
		style = "notty"
	}
	fmt.Fprint(out, services.RenderDiff(diff, deps.TerminalWidth(), services.NewGlamourRenderer(style)))
}

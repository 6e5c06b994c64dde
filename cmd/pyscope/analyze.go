package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/config"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/fixpoint"
	"github.com/pyscope-dev/pyscope/internal/persist"
	"github.com/pyscope-dev/pyscope/internal/tainted"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Run the taint fixpoint to completion and report taint diagnostics",
	Long: `analyze builds the call graph over every discovered module, seeds
initial taint models from the configured model-DSL rule files (and the
persisted cache, when available), and drives the forward/backward
analyzer to a fixpoint or until max_iterations is reached.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	settings := settingsCur
	proj, err := loadProject(settings)
	if err != nil {
		return err
	}

	rawRules, err := loadTaintRules(settings, proj.collectCandidates())
	if err != nil {
		return err
	}
	if len(rawRules.Errors) > 0 && logger != nil {
		for _, e := range rawRules.Errors {
			logger.Warn("taint model parse error", zap.Error(e))
		}
	}

	seeded, signatures := tainted.Seed(rawRules)

	locator := tainted.NewMapLocator(proj.programs)
	analyzer := &tainted.Analyzer{
		Locator:    locator,
		Graph:      proj.graph,
		Rules:      selectRules(defaultRules(), settings.RuleFilter),
		Signatures: signatures,
	}

	models := fixpoint.NewModelsHandle()
	results := fixpoint.NewResultsHandle[[]diagnostics.Diagnostic]()

	var store *persist.Store
	epoch := ""
	if settings.CacheDir != "" {
		store, err = persist.Open(settings.CacheDir)
		if err != nil {
			return fmt.Errorf("opening model cache: %w", err)
		}
		defer store.Close()

		epoch = cacheEpoch(settings)
		if cached, err := store.LoadModels(epoch); err == nil {
			for target, model := range cached.Snapshot() {
				models.Add(target, model)
			}
		}
	}

	targets := proj.targets()
	for _, t := range targets {
		if _, ok := models.Get(t); ok {
			continue
		}
		if seed, ok := seeded[t]; ok {
			models.Add(t, seed)
			continue
		}
		models.Add(t, taint.EmptyModel())
	}
	for target, model := range seeded {
		if _, ok := models.Get(target); !ok {
			models.Add(target, model)
		}
	}

	qualifierOf := func(t calltarget.Target) string {
		callable, ok := locator.Lookup(t)
		if !ok {
			return ""
		}
		return callable.Qualifier
	}

	driver := fixpoint.New(fixpoint.Config[[]diagnostics.Diagnostic]{
		Graph:              proj.graph,
		Models:             models,
		Results:            results,
		Oracle:             analyzer,
		QualifierOf:        qualifierOf,
		MaxIterations:      settings.MaxIterations,
		ChunkSize:          settings.WorkerChunks,
		ExpensiveThreshold: time.Duration(settings.ExpensiveCallableMS) * time.Millisecond,
		Logger:             logger,
	})

	ctx := context.Background()
	runErr := driver.Run(ctx, targets)

	if store != nil {
		if err := store.SaveModels(cacheEpoch(settings), models); err != nil {
			return fmt.Errorf("saving model cache: %w", err)
		}
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].String() < targets[j].String() })

	errorCount := 0
	for _, t := range targets {
		ds, ok := results.Get(t)
		if !ok {
			continue
		}
		errorCount += printDiagnostics(os.Stdout, t.String(), ds)
	}

	if runErr != nil {
		return runErr
	}
	if errorCount > 0 {
		fmt.Fprintf(os.Stderr, "%d taint issue(s)\n", errorCount)
		os.Exit(1)
	}
	return nil
}

// cacheEpoch tags the loaded/saved model cache; a straightforward stand-in
// for a project-wide content hash until an incremental checksum over every
// search root's tree is worth adding.
func cacheEpoch(settings *config.Settings) string {
	return "default"
}

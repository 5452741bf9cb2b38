package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/engine"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
	"github.com/gyaneshwarpardhi/scenenodes/internal/store"
)

var (
	cfgPath string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "scenenodes",
		Short: "Mirror a scene/object/material hierarchy as a laid-out node graph",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/scenenodes.yaml", "Path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.AddCommand(serveCmd, rebuildCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is everything both commands share.
type app struct {
	loader   *config.Loader
	model    *source.Store
	session  *graph.Session
	store    *store.GraphStore
	eng      *engine.Engine
	document string
}

// bootstrap loads the config, opens the host document and the
// snapshot store and starts the engine.
func bootstrap(ctx context.Context) (*app, error) {
	loader, err := config.NewLoader(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg := loader.Config()

	a := &app{loader: loader, document: resolve(cfgPath, cfg.Document)}
	if a.document != "" {
		a.model, err = source.LoadDocument(a.document)
		if err != nil {
			return nil, err
		}
	} else {
		a.model = source.NewStore()
	}
	slog.Info("source loaded", "document", a.document, "scenes", len(a.model.Scenes()))

	a.store, err = store.Open(cfg.Store, slog.Default())
	if err != nil {
		return nil, err
	}

	a.session = graph.NewSession(a.model, graph.Options{
		Layout:          cfg.Layout,
		DuplicableTypes: cfg.Lifecycle.DuplicableTypes,
		Logger:          slog.Default(),
	})
	a.eng = engine.New(ctx, a.session, engine.Options{
		Config:   loader.Config,
		Store:    a.store,
		Document: a.document,
		Logger:   slog.Default(),
	})
	return a, nil
}

func (a *app) close() {
	a.eng.Shutdown()
	if err := a.store.Close(); err != nil {
		slog.Warn("snapshot store close failed", "err", err)
	}
}

// resolve makes a document path relative to the config file's directory.
func resolve(cfgPath, doc string) string {
	if doc == "" || filepath.IsAbs(doc) {
		return doc
	}
	return filepath.Join(filepath.Dir(cfgPath), doc)
}

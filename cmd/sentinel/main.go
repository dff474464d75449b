package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"InstabilitySentinel/internal/config"
	"InstabilitySentinel/internal/logger"
	"InstabilitySentinel/internal/recorder"
	"InstabilitySentinel/internal/trend"
)

var (
	cfgPath string
	cfg     *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Country instability trend tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			if err := logger.Init(loaded.Log.Level, loaded.Log.File); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "path to the YAML config file")

	root.AddCommand(newRunCmd(), newReportCmd(), newTrendCmd())
	return root
}

// openRecorder builds the durable store chain from config. SQLite is the
// primary store when configured; the archive receives a copy of every write.
func openRecorder(c *config.Config) recorder.Recorder {
	var recs []recorder.Recorder
	if c.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(c.Database.SQLitePath)
		if err != nil {
			logger.Log.WithError(err).Warn("init sqlite recorder failed, continuing without it")
		} else {
			recs = append(recs, sr)
		}
	}
	if c.Archive.Path != "" {
		ar, err := recorder.NewArchiveRecorder(c.Archive.Path, c.Archive.Compress)
		if err != nil {
			logger.Log.WithError(err).Warn("init archive recorder failed, continuing without it")
		} else {
			recs = append(recs, ar)
		}
	}
	switch len(recs) {
	case 0:
		return recorder.NewNoopRecorder()
	case 1:
		return recs[0]
	default:
		return recorder.NewMultiRecorder(recs...)
	}
}

// restoredEngine returns an engine holding the retained history from rec.
func restoredEngine(rec recorder.Recorder) (*trend.Engine, error) {
	engine := trend.NewEngine()
	observations, err := rec.LoadObservations(engine.Now().Add(-trend.Retention))
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	engine.Restore(observations)
	return engine, nil
}

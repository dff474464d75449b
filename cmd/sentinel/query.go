package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"InstabilitySentinel/internal/notifier"
)

func newReportCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the rising, falling and volatile digest from stored history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec := openRecorder(cfg)
			defer rec.Close()

			engine, err := restoredEngine(rec)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Report.Limit
			}
			digest := &notifier.Digest{
				GeneratedAt: time.Now(),
				Tracked:     engine.CountTrackedCountries(),
				Rising:      engine.MostRising(limit),
				Falling:     engine.MostFalling(limit),
				Volatile:    engine.MostVolatile(limit),
			}
			fmt.Fprint(cmd.OutOrStdout(), notifier.FormatDigest(digest))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "entries per section (default from config)")
	return cmd
}

func newTrendCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "trend CODE [COMPONENT]",
		Short: "Print the trend of one country or one of its components",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := openRecorder(cfg)
			defer rec.Close()

			engine, err := restoredEngine(rec)
			if err != nil {
				return err
			}

			var (
				result any
				text   string
				ok     bool
			)
			if len(args) == 2 {
				c, found := engine.ComponentTrend(args[0], args[1])
				if found {
					result, text, ok = c, notifier.FormatComponentTrend(c), true
				}
			} else {
				t, found := engine.Trend(args[0])
				if found {
					result, text, ok = t, notifier.FormatTrend(t), true
				}
			}
			if !ok {
				return fmt.Errorf("not enough history for %v", args)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

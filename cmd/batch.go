package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
)

var (
	batchFile    string
	batchMinutes int
	batchSave    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze many locations from a CSV file",
	Long:  "Reads origins from a CSV with header label,lat,lon and analyzes them concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		origins, err := readOrigins(batchFile)
		if err != nil {
			return err
		}
		if len(origins) == 0 {
			zap.L().Info("no origins in input file")
			return nil
		}

		analyzer, _, err := initAnalyzer()
		if err != nil {
			return err
		}

		zap.L().Info("processing batch",
			zap.Int("origins", len(origins)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrent),
		)

		results := make([]*analysis.Result, len(origins))
		var failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrent)
		for i, req := range origins {
			g.Go(func() error {
				result, err := analyzer.Run(gctx, analysis.Request{
					Origin:  req.coord,
					Label:   req.label,
					Minutes: batchMinutes,
				})
				if err != nil {
					failed.Add(1)
					zap.L().Error("batch origin failed",
						zap.String("label", req.label),
						zap.Error(err),
					)
					return nil
				}
				results[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		completed := make([]*analysis.Result, 0, len(results))
		for _, r := range results {
			if r != nil {
				completed = append(completed, r)
			}
		}

		if batchSave && len(completed) > 0 {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.SaveRuns(ctx, completed); err != nil {
				return err
			}
		}

		for _, r := range completed {
			fmt.Printf("%-20s %6.1f  %s\n", r.Label, r.Score.TotalScore, r.Grade)
		}
		zap.L().Info("batch complete",
			zap.Int("completed", len(completed)),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

type origin struct {
	label string
	coord geom.Coord
}

// readOrigins parses a CSV of label,lat,lon rows. A header row is detected
// and skipped when its lat column does not parse as a number.
func readOrigins(path string) ([]origin, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3

	var origins []origin
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		line++

		lat, latErr := strconv.ParseFloat(record[1], 64)
		lon, lonErr := strconv.ParseFloat(record[2], 64)
		if latErr != nil || lonErr != nil {
			if line == 1 {
				continue // header
			}
			return nil, eris.Errorf("%s line %d: invalid coordinates %q,%q", path, line, record[1], record[2])
		}

		origins = append(origins, origin{label: record[0], coord: geom.Coord{lon, lat}})
	}
	return origins, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV file with label,lat,lon rows (required)")
	batchCmd.Flags().IntVar(&batchMinutes, "time", 15, "walking range in minutes")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist runs to the store")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

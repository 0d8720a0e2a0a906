package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
	"github.com/urbanmetric/walkability-cli/internal/export"
)

var (
	analyzeLat      float64
	analyzeLon      float64
	analyzeDistrict string
	analyzeAddress  string
	analyzeMinutes  int
	analyzeServices string
	analyzeFormat   string
	analyzeGeoJSON  string
	analyzeXLSX     string
	analyzeSave     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze walkability for a single location",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		origin, label, err := resolveOrigin(ctx, analyzeLat, analyzeLon, analyzeDistrict, analyzeAddress)
		if err != nil {
			return err
		}

		analyzer, _, err := initAnalyzer()
		if err != nil {
			return err
		}

		result, err := analyzer.Run(ctx, analysis.Request{
			Origin:     origin,
			Label:      label,
			Minutes:    analyzeMinutes,
			Categories: splitCategories(analyzeServices),
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		if analyzeSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.SaveRun(ctx, result); err != nil {
				return err
			}
			zap.L().Info("run saved", zap.String("id", result.ID.String()))
		}

		if analyzeGeoJSON != "" {
			if err := export.WriteGeoJSON(result, analyzeGeoJSON); err != nil {
				return err
			}
			zap.L().Info("geojson written", zap.String("path", analyzeGeoJSON))
		}
		if analyzeXLSX != "" {
			if err := export.WriteXLSX(result, analyzeXLSX); err != nil {
				return err
			}
			zap.L().Info("xlsx written", zap.String("path", analyzeXLSX))
		}

		switch analyzeFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		case "text":
			printResult(result)
			return nil
		default:
			return eris.Errorf("unknown format %q", analyzeFormat)
		}
	},
}

func printResult(result *analysis.Result) {
	if result.Label != "" {
		fmt.Printf("Location:  %s (%.7f, %.7f)\n", result.Label, result.Origin[1], result.Origin[0])
	} else {
		fmt.Printf("Location:  %.7f, %.7f\n", result.Origin[1], result.Origin[0])
	}
	fmt.Printf("Range:     %d min walk\n", result.Minutes)
	fmt.Printf("Score:     %.1f / 100 (%s)\n\n", result.Score.TotalScore, result.Grade)

	for _, cs := range result.Score.Categories {
		marker := " "
		if cs.Count >= cs.MinCount {
			marker = "+"
		}
		fmt.Printf("  [%s] %-12s %3d found (min %d)  score %5.1f  weight %.2f\n",
			marker, cs.Category, cs.Count, cs.MinCount, cs.RawScore, cs.Weight)
	}

	if len(result.Suggestions) > 0 {
		fmt.Println()
		for _, s := range result.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeLat, "lat", 0, "origin latitude")
	analyzeCmd.Flags().Float64Var(&analyzeLon, "lon", 0, "origin longitude")
	analyzeCmd.Flags().StringVar(&analyzeDistrict, "district", "", "district name")
	analyzeCmd.Flags().StringVar(&analyzeAddress, "address", "", "free-form address")
	analyzeCmd.Flags().IntVar(&analyzeMinutes, "time", 15, "walking range in minutes")
	analyzeCmd.Flags().StringVar(&analyzeServices, "services", "", "comma-separated category names (default: all)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "output format: text or json")
	analyzeCmd.Flags().StringVar(&analyzeGeoJSON, "geojson", "", "write GeoJSON to file")
	analyzeCmd.Flags().StringVar(&analyzeXLSX, "xlsx", "", "write XLSX report to file")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the run to the store")
	rootCmd.AddCommand(analyzeCmd)
}

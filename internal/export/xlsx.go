package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/urbanmetric/walkability-cli/internal/analysis"
)

// WriteXLSX writes a two-sheet scorecard workbook: a summary sheet with the
// per-category breakdown and a detail sheet listing every POI.
func WriteXLSX(result *analysis.Result, path string) error {
	f := xlsx.NewFile()

	if err := writeSummarySheet(f, result); err != nil {
		return err
	}
	if err := writePOISheet(f, result); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func writeSummarySheet(f *xlsx.File, result *analysis.Result) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	addRow(sheet, "Label", result.Label)
	addRow(sheet, "Origin", fmt.Sprintf("%.7f, %.7f", result.Origin[0], result.Origin[1]))
	addRow(sheet, "Walking range (min)", fmt.Sprintf("%d", result.Minutes))
	addRow(sheet, "Total score", fmt.Sprintf("%.1f", result.Score.TotalScore))
	addRow(sheet, "Grade", result.Grade)
	addRow(sheet, "Analyzed at", result.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	sheet.AddRow()

	addRow(sheet, "Category", "Count", "Minimum", "Raw score", "Weight", "Weighted")
	for _, cs := range result.Score.Categories {
		row := sheet.AddRow()
		row.AddCell().Value = cs.Category
		row.AddCell().SetInt(cs.Count)
		row.AddCell().SetInt(cs.MinCount)
		row.AddCell().SetFloat(cs.RawScore)
		row.AddCell().SetFloat(cs.Weight)
		row.AddCell().SetFloat(cs.WeightedScore)
	}

	if len(result.Suggestions) > 0 {
		sheet.AddRow()
		addRow(sheet, "Suggestions")
		for _, s := range result.Suggestions {
			addRow(sheet, s)
		}
	}
	return nil
}

func writePOISheet(f *xlsx.File, result *analysis.Result) error {
	sheet, err := f.AddSheet("POIs")
	if err != nil {
		return eris.Wrap(err, "export: add poi sheet")
	}

	addRow(sheet, "Category", "Name", "ID", "Kind", "Tag", "Lon", "Lat")
	for _, name := range result.Categories {
		for _, poi := range result.POIs[name] {
			row := sheet.AddRow()
			row.AddCell().Value = poi.Category
			row.AddCell().Value = poi.Name
			row.AddCell().Value = poi.ID
			row.AddCell().Value = string(poi.Kind)
			row.AddCell().Value = poi.MatchedTag
			if len(poi.Coord) >= 2 {
				row.AddCell().SetFloat(poi.Coord.X())
				row.AddCell().SetFloat(poi.Coord.Y())
			}
		}
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}

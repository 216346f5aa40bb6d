//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package report materializes aggregated result records into multi-sheet
// spreadsheet artifacts.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
)

// Sheet names.
const (
	sheetInput       = "Input Details"
	sheetResponse    = "Response Details"
	sheetPerformance = "Performance"
	sheetOrganized   = "Organized"
)

// appendGap is the number of blank rows inserted before appended data.
const appendGap = 1

// Generator writes result records to xlsx workbooks.
type Generator struct {
	dir string
}

// Option configures a Generator.
type Option func(*Generator)

// WithDir sets the output directory for generated workbooks.
func WithDir(dir string) Option {
	return func(g *Generator) {
		if dir != "" {
			g.dir = dir
		}
	}
}

// New creates a report generator.
func New(opt ...Option) *Generator {
	g := &Generator{dir: os.TempDir()}
	for _, o := range opt {
		o(g)
	}
	return g
}

// Generate writes the result record to <dir>/<process_id>.xlsx and returns the
// path. When the file already exists, prior sheets are preserved and new data
// is appended after a blank-row gap instead of overwriting.
func (g *Generator) Generate(rec *record.ResultRecord, includeOrganized bool) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("result record is nil")
	}
	path := filepath.Join(g.dir, rec.ProcessID+".xlsx")

	f, created, err := openWorkbook(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := g.writeInputSheet(f, rec); err != nil {
		return "", err
	}
	if err := g.writeResponseSheet(f, rec); err != nil {
		return "", err
	}
	if err := g.writePerformanceSheet(f, rec); err != nil {
		return "", err
	}
	if includeOrganized {
		if err := g.writeOrganizedSheet(f, rec); err != nil {
			return "", err
		}
	}
	if created {
		// Drop the default sheet excelize creates for new workbooks.
		f.DeleteSheet("Sheet1")
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

// openWorkbook opens an existing workbook for appending or creates a new one.
func openWorkbook(path string) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("open workbook: %w", err)
		}
		return f, false, nil
	}
	return excelize.NewFile(), true, nil
}

// nextRow returns the first writable row of a sheet, creating the sheet with a
// header when absent and leaving a blank gap when appending.
func nextRow(f *excelize.File, sheet string, header []any) (int, error) {
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return 0, fmt.Errorf("get sheet index: %w", err)
	}
	if index < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return 0, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
		return 2, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return len(rows) + 1 + appendGap, nil
}

// writeInputSheet writes one row per test item, annotated with distribution
// percentage and prompt count, cell-merged by test id and timestamp.
func (g *Generator) writeInputSheet(f *excelize.File, rec *record.ResultRecord) error {
	header := []any{"Timestamp", "Test ID", "Model", "Query", "Prompt Count", "Distribution %"}
	row, err := nextRow(f, sheetInput, header)
	if err != nil {
		return err
	}
	for _, model := range rec.Models {
		for _, group := range model.Groups {
			prompts := promptCounts(group.Rows)
			groupStart := row
			for _, pc := range prompts {
				percent := 0.0
				if len(group.Rows) > 0 {
					percent = float64(pc.count) / float64(len(group.Rows)) * 100
				}
				values := []any{rec.Timestamp, group.Name, model.ModelName, pc.prompt, pc.count, percent}
				if err := f.SetSheetRow(sheetInput, cell(0, row), &values); err != nil {
					return fmt.Errorf("write input row: %w", err)
				}
				row++
			}
			if row-1 > groupStart {
				// One merged cell per test id and per timestamp spanning the group's rows.
				if err := f.MergeCell(sheetInput, cell(0, groupStart), cell(0, row-1)); err != nil {
					return fmt.Errorf("merge timestamp cells: %w", err)
				}
				if err := f.MergeCell(sheetInput, cell(1, groupStart), cell(1, row-1)); err != nil {
					return fmt.Errorf("merge test id cells: %w", err)
				}
			}
		}
	}
	return nil
}

// writeResponseSheet writes one row per request with latency, status, and response.
func (g *Generator) writeResponseSheet(f *excelize.File, rec *record.ResultRecord) error {
	header := []any{"Test ID", "Model", "Request ID", "Query", "Response", "Answer", "Latency (s)", "Status Code", "Status"}
	row, err := nextRow(f, sheetResponse, header)
	if err != nil {
		return err
	}
	for _, model := range rec.Models {
		for _, group := range model.Groups {
			for _, r := range group.Rows {
				values := []any{r.TestID, model.ModelName, r.RequestID, r.Query, r.Response, r.Answer,
					r.Latency, r.StatusCode, r.Status}
				if err := f.SetSheetRow(sheetResponse, cell(0, row), &values); err != nil {
					return fmt.Errorf("write response row: %w", err)
				}
				row++
			}
		}
	}
	return nil
}

// writePerformanceSheet writes one row per test id with percentile latencies
// and throughput.
func (g *Generator) writePerformanceSheet(f *excelize.File, rec *record.ResultRecord) error {
	header := []any{"Test ID", "Model", "Requests", "Throughput (req/s)", "p50", "p75", "p90.5", "p95", "p99"}
	row, err := nextRow(f, sheetPerformance, header)
	if err != nil {
		return err
	}
	for _, model := range rec.Models {
		for _, group := range model.Groups {
			values := []any{group.Name, model.ModelName, len(group.Rows), group.Throughput,
				group.Percentiles["50"], group.Percentiles["75"], group.Percentiles["90.5"],
				group.Percentiles["95"], group.Percentiles["99"]}
			if err := f.SetSheetRow(sheetPerformance, cell(0, row), &values); err != nil {
				return fmt.Errorf("write performance row: %w", err)
			}
			row++
		}
	}
	return nil
}

// writeOrganizedSheet groups responses by test id with the query text, used by
// the evaluation (non-benchmark) path.
func (g *Generator) writeOrganizedSheet(f *excelize.File, rec *record.ResultRecord) error {
	header := []any{"Test ID", "Query", "Model", "Response", "Answer"}
	row, err := nextRow(f, sheetOrganized, header)
	if err != nil {
		return err
	}
	// Collect rows per test id across models so each group reads contiguously.
	type entry struct {
		model string
		row   record.Row
	}
	byTest := make(map[string][]entry)
	var order []string
	for _, model := range rec.Models {
		for _, group := range model.Groups {
			for _, r := range group.Rows {
				if _, ok := byTest[r.TestID]; !ok {
					order = append(order, r.TestID)
				}
				byTest[r.TestID] = append(byTest[r.TestID], entry{model: model.ModelName, row: r})
			}
		}
	}
	for _, testID := range order {
		for _, e := range byTest[testID] {
			values := []any{testID, e.row.Query, e.model, e.row.Response, e.row.Answer}
			if err := f.SetSheetRow(sheetOrganized, cell(0, row), &values); err != nil {
				return fmt.Errorf("write organized row: %w", err)
			}
			row++
		}
	}
	return nil
}

// promptCount aggregates identical prompts within a group.
type promptCount struct {
	prompt string
	count  int
}

// promptCounts counts repeated prompts preserving first-seen order.
func promptCounts(rows []record.Row) []promptCount {
	index := make(map[string]int)
	var counts []promptCount
	for _, r := range rows {
		if i, ok := index[r.Query]; ok {
			counts[i].count++
			continue
		}
		index[r.Query] = len(counts)
		counts = append(counts, promptCount{prompt: r.Query, count: 1})
	}
	return counts
}

// cell renders the cell reference for a zero-based column and one-based row.
func cell(col, row int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return fmt.Sprintf("%s%d", name, row)
}

// Package datasets writes deterministic synthetic datasets for assignment dataset specs.
// No model is involved: identical specs and reference year yield byte-identical files.
package datasets

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// StepName identifies this step in errors and artifacts
const StepName = "datasets"

// Dir is the dataset directory inside a run output directory
const Dir = "datasets"

// DefaultSeed seeds every dataset independently
const DefaultSeed int64 = 42

// Synthesizer generates dataset files and attaches their paths to the assignment set
type Synthesizer struct {
	Seed int64
	// Now supplies the reference year for date and datetime columns
	Now    func() time.Time
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer with the default seed and the current clock
func NewSynthesizer(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Synthesizer{Seed: DefaultSeed, Now: time.Now, logger: logger}
}

// Synthesize writes every dataset in set under outputDir/datasets and sets its Path.
// A dataset that fails validation or cannot be written is reported as a
// *types.PerItemError and left without a Path; the others still complete.
func (s *Synthesizer) Synthesize(set *types.AssignmentSet, outputDir string) ([]types.GeneratedArtifact, []error) {
	dir := filepath.Join(outputDir, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, []error{fmt.Errorf("failed to create %s: %w", dir, err)}
	}

	year := s.Now().Year()
	used := make(map[string]bool)
	var artifacts []types.GeneratedArtifact
	var errs []error

	for i := range set.Assignments {
		a := &set.Assignments[i]
		for j := range a.Datasets {
			ds := &a.Datasets[j]
			ds.Path = ""
			item := a.ID + "/" + ds.Name

			data, err := Generate(*ds, s.Seed, year)
			if err != nil {
				errs = append(errs, &types.PerItemError{Step: StepName, Item: item, Message: "invalid dataset spec", Cause: err})
				s.logger.Warn("dataset skipped", "item", item, "error", err)
				continue
			}

			name := Filename(*ds)
			if used[name] {
				name = a.ID + "_" + name
			}
			used[name] = true

			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				errs = append(errs, &types.PerItemError{Step: StepName, Item: item, Message: "write failed", Cause: err})
				continue
			}

			ds.Filename = name
			ds.Path = path.Join(Dir, name)
			artifacts = append(artifacts, types.GeneratedArtifact{Kind: types.ArtifactDataset, Path: ds.Path, ProducedBy: StepName})
			s.logger.Info("dataset written", "item", item, "path", ds.Path, "records", ds.Records)
		}
	}
	return artifacts, errs
}

// Validate checks a dataset spec can be synthesized
func Validate(ds types.DatasetSpec) error {
	if ds.Format != types.FormatCSV && ds.Format != types.FormatJSON {
		return fmt.Errorf("unsupported format %q", ds.Format)
	}
	if ds.Records < types.MinDatasetRecords || ds.Records > types.MaxDatasetRecords {
		return fmt.Errorf("records must be between %d and %d, got %d", types.MinDatasetRecords, types.MaxDatasetRecords, ds.Records)
	}
	if len(ds.Columns) == 0 {
		return fmt.Errorf("dataset has no columns")
	}

	seen := make(map[string]bool)
	for _, col := range ds.Columns {
		name := strings.TrimSpace(col.Name)
		if name == "" {
			return fmt.Errorf("column with empty name")
		}
		if seen[name] {
			return fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true

		switch col.EffectiveType() {
		case types.ColumnString, types.ColumnText, types.ColumnInteger, types.ColumnFloat,
			types.ColumnBoolean, types.ColumnDate, types.ColumnDatetime:
		case types.ColumnCategory:
			if len(col.Choices) == 0 {
				return fmt.Errorf("category column %q has no choices", name)
			}
		default:
			return fmt.Errorf("column %q has unknown type %q", name, col.Type)
		}
	}
	return nil
}

// Generate renders a dataset to bytes. Output depends only on the dataset definition, seed and year.
func Generate(ds types.DatasetSpec, seed int64, year int) ([]byte, error) {
	if err := Validate(ds); err != nil {
		return nil, err
	}

	gen := newValueGen(seed, year)
	rows := make([][]any, ds.Records)
	for r := range rows {
		row := make([]any, len(ds.Columns))
		for c, col := range ds.Columns {
			row[c] = gen.value(col, r)
		}
		rows[r] = row
	}

	if ds.Format == types.FormatJSON {
		return encodeJSON(ds.Columns, rows)
	}
	return encodeCSV(ds.Columns, rows)
}

func encodeCSV(columns []types.ColumnSpec, rows [][]any) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', 2, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	}
	return fmt.Sprint(v)
}

// encodeJSON writes an indented array of objects, keeping column order
func encodeJSON(columns []types.ColumnSpec, rows [][]any) ([]byte, error) {
	keys := make([][]byte, len(columns))
	for i, col := range columns {
		k, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteString("[\n")
	for r, row := range rows {
		buf.WriteString("  {\n")
		for c, v := range row {
			val, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.WriteString("    ")
			buf.Write(keys[c])
			buf.WriteString(": ")
			buf.Write(val)
			if c < len(row)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString("  }")
		if r < len(rows)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns the base file name for a dataset with its extension forced to the format
func Filename(ds types.DatasetSpec) string {
	base := strings.TrimSpace(ds.Filename)
	if base != "" {
		base = path.Base(strings.ReplaceAll(base, "\\", "/"))
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	if base == "" || base == "." || base == "/" {
		base = ds.Name
	}
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "dataset"
	}

	ext := ".csv"
	if ds.Format == types.FormatJSON {
		ext = ".json"
	}
	return base + ext
}

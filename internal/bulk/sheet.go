// Package bulk runs the generation pipeline once per row of a job sheet.
package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/chulminlee01/mrt-tech-test/internal/fetch"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Required sheet columns
var requiredColumns = []string{"team", "level"}

// DefaultLevel is used when a row's level cell is blank
const DefaultLevel = "Mid-level"

// Row is one job of a bulk sheet. Optional cells reading none, null, n/a or na are blank.
type Row struct {
	Index         int    `json:"row_index"`
	Team          string `json:"team"`
	JobRole       string `json:"job_role"`
	Level         string `json:"job_level"`
	Language      string `json:"language"`
	Model         string `json:"model,omitempty"`
	ResearchModel string `json:"research_model,omitempty"`
	QuestionModel string `json:"question_model,omitempty"`
	StarterModel  string `json:"starter_model,omitempty"`
	BuilderModel  string `json:"builder_model,omitempty"`
	DesignerModel string `json:"designer_model,omitempty"`
	WithDesigner  bool   `json:"with_designer,omitempty"`
	Topic         string `json:"topic,omitempty"`
	ExternalLink  string `json:"external_link,omitempty"`
}

// HasExternalLink reports whether the row points at an existing package and must be skipped
func (r Row) HasExternalLink() bool {
	switch strings.ToLower(strings.TrimSpace(r.ExternalLink)) {
	case "", "no", "n", "none":
		return false
	}
	return true
}

// MissingColumnsError reports a sheet without the required columns
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("sheet is missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ParseCSV reads a job sheet. Headers are matched case-insensitively; rows with a blank
// team are dropped. Index is the zero-based position among data rows.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv: sheet is empty (no header row)")
	}

	columns := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := columns[h]; !dup {
			columns[h] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows := make([]Row, 0, len(records)-1)
	for idx, record := range records[1:] {
		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		team := cell("team")
		if team == "" {
			continue
		}
		level := cell("level")
		if level == "" {
			level = DefaultLevel
		}
		language := cleanOptional(cell("language"))
		if language == "" {
			language = types.DefaultLanguage
		}

		rows = append(rows, Row{
			Index:         idx,
			Team:          team,
			JobRole:       inferJobRole(team, cleanOptional(cell("job_role"))),
			Level:         level,
			Language:      language,
			Model:         cleanOptional(cell("model")),
			ResearchModel: cleanOptional(cell("research_model")),
			QuestionModel: cleanOptional(cell("question_model")),
			StarterModel:  cleanOptional(cell("starter_model")),
			BuilderModel:  cleanOptional(cell("builder_model")),
			DesignerModel: cleanOptional(cell("designer_model")),
			WithDesigner:  parseBool(cell("with_designer")),
			Topic:         cleanOptional(cell("topic")),
			ExternalLink:  cleanOptional(cell("external_link")),
		})
	}
	return rows, nil
}

func cleanOptional(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "none", "null", "n/a", "na":
		return ""
	}
	return value
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}

// inferJobRole uses an explicit job_role cell, else derives "<team> Developer"
func inferJobRole(team, jobRole string) string {
	if jobRole != "" {
		return jobRole
	}
	lowered := strings.ToLower(team)
	if strings.HasSuffix(lowered, "developer") || strings.HasSuffix(lowered, "engineer") {
		return team
	}
	return team + " Developer"
}

var (
	sheetIDPattern  = regexp.MustCompile(`/d/([\w-]+)`)
	sheetGIDPattern = regexp.MustCompile(`gid=(\d+)`)
)

// SheetCSVURL turns a Google Sheet edit URL into its CSV export URL
func SheetCSVURL(sheetURL string) (string, error) {
	match := sheetIDPattern.FindStringSubmatch(sheetURL)
	if match == nil || !strings.Contains(sheetURL, "docs.google.com/spreadsheets") {
		return "", fmt.Errorf("not a Google Sheet URL: %q", sheetURL)
	}
	gid := "0"
	if m := sheetGIDPattern.FindStringSubmatch(sheetURL); m != nil {
		gid = m[1]
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", match[1], gid), nil
}

// FetchSheet downloads a Google Sheet as CSV and parses it
func FetchSheet(ctx context.Context, sheetURL string) ([]Row, error) {
	csvURL, err := SheetCSVURL(sheetURL)
	if err != nil {
		return nil, err
	}
	return FetchCSV(ctx, csvURL, nil)
}

// FetchCSV downloads a CSV job sheet from any URL and parses it
func FetchCSV(ctx context.Context, csvURL string, opts *fetch.Options) ([]Row, error) {
	result, err := fetch.URL(ctx, csvURL, opts)
	if err != nil {
		return nil, err
	}
	return ParseCSV(bytes.NewReader(result.Body))
}

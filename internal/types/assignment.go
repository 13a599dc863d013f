package types

import "time"

// ResearchReport is the advisory context produced by the research step
type ResearchReport struct {
	Text        string         `json:"text"`
	GeneratedAt time.Time      `json:"generated_at"`
	Sources     []SearchSource `json:"sources,omitempty"`
	// Degraded is set when the report was built without external sources or model synthesis
	Degraded bool `json:"degraded,omitempty"`
}

// SearchSource is a search hit that contributed to a research report
type SearchSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ColumnType is the generation rule applied to a synthetic dataset column
type ColumnType string

// ColumnType constants
const (
	ColumnString   ColumnType = "string"
	ColumnText     ColumnType = "text"
	ColumnInteger  ColumnType = "integer"
	ColumnFloat    ColumnType = "float"
	ColumnBoolean  ColumnType = "boolean"
	ColumnDate     ColumnType = "date"
	ColumnDatetime ColumnType = "datetime"
	ColumnCategory ColumnType = "category"
)

// DatasetFormat is the serialization of a synthetic dataset
type DatasetFormat string

// DatasetFormat constants
const (
	FormatCSV  DatasetFormat = "csv"
	FormatJSON DatasetFormat = "json"
)

// Record count bounds for a single dataset
const (
	MinDatasetRecords = 10
	MaxDatasetRecords = 5000
)

// ColumnSpec describes one column of a synthetic dataset
type ColumnSpec struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type,omitempty"`
	Description string     `json:"description,omitempty"`
	Choices     []string   `json:"choices,omitempty"`
}

// EffectiveType returns the column type, defaulting to string
func (c ColumnSpec) EffectiveType() ColumnType {
	if c.Type == "" {
		return ColumnString
	}
	return c.Type
}

// DatasetSpec describes a synthetic dataset attached to an assignment
type DatasetSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Format      DatasetFormat `json:"format"`
	Records     int           `json:"records"`
	Filename    string        `json:"filename,omitempty"`
	Columns     []ColumnSpec  `json:"columns"`
	// Path is the written file relative to the run output directory
	Path string `json:"path,omitempty"`
}

// StarterCodeSpec describes the boilerplate file handed to candidates
type StarterCodeSpec struct {
	Language    string `json:"language,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Description string `json:"description,omitempty"`
	// Path is the written file relative to the run output directory
	Path string `json:"path,omitempty"`
}

// AssignmentRecord is a single take-home assignment
type AssignmentRecord struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Mission             string          `json:"mission"`
	Summary             string          `json:"summary"`
	Requirements        []string        `json:"requirements"`
	Deliverables        []string        `json:"deliverables"`
	AIGuidelines        []string        `json:"ai_guidelines"`
	Evaluation          []string        `json:"evaluation"`
	Timeline            string          `json:"timeline"`
	DiscussionQuestions []string        `json:"discussion_questions"`
	Datasets            []DatasetSpec   `json:"datasets"`
	StarterCode         StarterCodeSpec `json:"starter_code"`
}

// AssignmentSet is the assignments.json document. Later steps attach file paths in place.
type AssignmentSet struct {
	Company     string             `json:"company"`
	JobRole     string             `json:"job_role"`
	JobLevel    string             `json:"job_level"`
	Assignments []AssignmentRecord `json:"assignments"`
}

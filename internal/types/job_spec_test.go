package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"Senior", LevelSenior},
		{"senior", LevelSenior},
		{"Mid-level", LevelMid},
		{"mid_level", LevelMid},
		{"Jr", LevelJunior},
		{"Entry Level", LevelJunior},
		{"Staff", LevelSenior},
		{"Lead", LevelPrincipal},
		{"  Principal ", LevelPrincipal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	_, err := ParseLevel("wizard")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job level")
}

func TestJobSpec_Validate(t *testing.T) {
	valid := JobSpec{Role: "iOS Developer", Level: LevelSenior, Language: "Korean", CompanyName: "Acme"}
	assert.NoError(t, valid.Validate())

	missingRole := valid
	missingRole.Role = ""
	assert.Error(t, missingRole.Validate())

	badLevel := valid
	badLevel.Level = "Wizard"
	assert.Error(t, badLevel.Validate())
}

func TestJobSpec_Title(t *testing.T) {
	job := JobSpec{Role: "Backend Engineer", Level: LevelMid}
	assert.Equal(t, "Mid Backend Engineer", job.Title())
}

func TestAssignmentSet_JSONFieldNames(t *testing.T) {
	set := AssignmentSet{
		Company:  "Acme",
		JobRole:  "iOS Developer",
		JobLevel: "Senior",
		Assignments: []AssignmentRecord{{
			ID:                  "A1",
			AIGuidelines:        []string{"cite prompts"},
			DiscussionQuestions: []string{"why?"},
			Datasets: []DatasetSpec{{
				Name:    "bookings",
				Format:  FormatCSV,
				Records: 100,
				Columns: []ColumnSpec{{Name: "id", Type: ColumnInteger}},
			}},
			StarterCode: StarterCodeSpec{Language: "swift", Filename: "Main.swift"},
		}},
	}

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "company")
	assert.Contains(t, raw, "job_role")
	assert.Contains(t, raw, "job_level")

	assignment := raw["assignments"].([]any)[0].(map[string]any)
	for _, key := range []string{"id", "title", "mission", "summary", "requirements", "deliverables",
		"ai_guidelines", "evaluation", "timeline", "discussion_questions", "datasets", "starter_code"} {
		assert.Contains(t, assignment, key)
	}

	dataset := assignment["datasets"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(100), dataset["records"])
	assert.NotContains(t, dataset, "path", "path is omitted until the dataset is written")
}

func TestColumnSpec_EffectiveType(t *testing.T) {
	assert.Equal(t, ColumnString, ColumnSpec{Name: "x"}.EffectiveType())
	assert.Equal(t, ColumnDate, ColumnSpec{Name: "x", Type: ColumnDate}.EffectiveType())
}

func TestLanguageCode(t *testing.T) {
	tests := map[string]string{
		"Korean":            LangKorean,
		" 한국어 ":             LangKorean,
		"Japanese (日本語)":   LangJapanese,
		"chinese":           LangChinese,
		"English":           LangEnglish,
		"":                  LangEnglish,
		"Portuguese":        LangEnglish,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, LanguageCode(input), input)
	}
	assert.Equal(t, LangKorean, JobSpec{Language: "Korean"}.LanguageCode())
}

func TestJobSpec_WithDefaults(t *testing.T) {
	job := JobSpec{Role: " iOS Developer ", Level: LevelSenior}.WithDefaults()
	assert.Equal(t, "iOS Developer", job.Role)
	assert.Equal(t, DefaultCompanyName, job.CompanyName)
	assert.Equal(t, DefaultLanguage, job.Language)
	assert.NoError(t, job.Validate())

	kept := JobSpec{Role: "Data Engineer", Level: LevelMid, CompanyName: "Acme", Language: "English"}.WithDefaults()
	assert.Equal(t, "Acme", kept.CompanyName)
	assert.Equal(t, "English", kept.Language)
}

// Package types provides type definitions for structured data used throughout the take-home generator.
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Level is the seniority a take-home package is calibrated for
type Level string

// Level constants
const (
	LevelJunior    Level = "Junior"
	LevelMid       Level = "Mid"
	LevelSenior    Level = "Senior"
	LevelPrincipal Level = "Principal"
)

// levelAliases maps free-form level labels (sheet cells, form input) onto Level values
var levelAliases = map[string]Level{
	"junior":       LevelJunior,
	"jr":           LevelJunior,
	"entry":        LevelJunior,
	"entry level":  LevelJunior,
	"intern":       LevelJunior,
	"associate":    LevelJunior,
	"mid":          LevelMid,
	"mid level":    LevelMid,
	"midlevel":     LevelMid,
	"low mid":      LevelMid,
	"intermediate": LevelMid,
	"mid senior":   LevelSenior,
	"senior":       LevelSenior,
	"senior level": LevelSenior,
	"sr":           LevelSenior,
	"staff":        LevelSenior,
	"lead":         LevelPrincipal,
	"principal":    LevelPrincipal,
	"director":     LevelPrincipal,
}

// ParseLevel normalizes a level label. Unknown labels are an error.
func ParseLevel(raw string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", " ")
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.Join(strings.Fields(key), " ")
	if level, ok := levelAliases[key]; ok {
		return level, nil
	}
	return "", fmt.Errorf("unknown job level %q (expected Junior, Mid, Senior or Principal)", raw)
}

// JobSpec describes which assignment package to generate. It is immutable once a run starts.
type JobSpec struct {
	Role        string `json:"job_role" validate:"required"`
	Level       Level  `json:"job_level" validate:"required,oneof=Junior Mid Senior Principal"`
	Language    string `json:"language" validate:"required"`
	CompanyName string `json:"company_name" validate:"required"`
	Topic       string `json:"topic,omitempty"`
}

// Validate validates the JobSpec using the validator.
func (j *JobSpec) Validate() error {
	validate := validator.New()
	return validate.Struct(j)
}

// Title returns the "<level> <role>" label used in prompts and page titles
func (j JobSpec) Title() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", j.Level, j.Role))
}

// Language codes for the output languages with localized prompts and UI strings
const (
	LangEnglish  = "en"
	LangKorean   = "ko"
	LangJapanese = "ja"
	LangChinese  = "zh"
)

// LanguageCode maps an output language name ("Korean", "한국어", "ja") to a language code.
// Unknown languages map to English.
func LanguageCode(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "korean", "한국어", "ko", "kr":
		return LangKorean
	case "japanese", "日本語", "japanese (日本語)", "ja", "jp":
		return LangJapanese
	case "chinese", "中文", "chinese (中文)", "zh", "cn":
		return LangChinese
	default:
		return LangEnglish
	}
}

// LanguageCode returns the code of the job's output language
func (j JobSpec) LanguageCode() string {
	return LanguageCode(j.Language)
}

// Defaults applied to JobSpec fields left blank by bulk rows and HTTP requests
const (
	DefaultCompanyName = "Myrealtrip OTA Company"
	DefaultLanguage    = "Korean"
)

// WithDefaults returns j with blank company and language filled in
func (j JobSpec) WithDefaults() JobSpec {
	j.Role = strings.TrimSpace(j.Role)
	j.CompanyName = strings.TrimSpace(j.CompanyName)
	j.Language = strings.TrimSpace(j.Language)
	j.Topic = strings.TrimSpace(j.Topic)
	if j.CompanyName == "" {
		j.CompanyName = DefaultCompanyName
	}
	if j.Language == "" {
		j.Language = DefaultLanguage
	}
	return j
}

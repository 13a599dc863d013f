package bulk

import (
	"regexp"
	"strings"
)

var roleTokens = map[string]string{
	"developer":   "dev",
	"development": "dev",
	"engineer":    "eng",
	"engineering": "eng",
	"frontend":    "fe",
	"backend":     "be",
}

var levelSlugs = map[string]string{
	"junior":           "jr",
	"junior level":     "jr",
	"entry":            "jr",
	"entry level":      "jr",
	"associate":        "assoc",
	"intern":           "intern",
	"mid":              "mid",
	"mid level":        "mid",
	"midlevel":         "mid",
	"low mid":          "low_mid",
	"mid senior":       "mid_senior",
	"mid senior level": "mid_senior",
	"senior":           "sr",
	"senior level":     "sr",
	"staff":            "staff",
	"lead":             "lead",
	"principal":        "principal",
	"director":         "director",
}

var languageSlugs = map[string]string{
	"korean":     "ko",
	"korea":      "ko",
	"english":    "en",
	"eng":        "en",
	"japanese":   "ja",
	"japan":      "ja",
	"chinese":    "zh",
	"mandarin":   "zh",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"vietnamese": "vi",
	"thai":       "th",
	"indonesian": "id",
	"portuguese": "pt",
}

var (
	nonAlnum    = regexp.MustCompile(`[^0-9a-z]+`)
	underscores = regexp.MustCompile(`_+`)
	spaces      = regexp.MustCompile(`\s+`)
)

func tokenize(value string) []string {
	return strings.FieldsFunc(nonAlnum.ReplaceAllString(strings.ToLower(value), " "), func(r rune) bool { return r == ' ' })
}

func joinTokens(tokens []string, replacements map[string]string) string {
	mapped := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if r, ok := replacements[tok]; ok {
			tok = r
		}
		mapped = append(mapped, tok)
	}
	return strings.Trim(underscores.ReplaceAllString(strings.Join(mapped, "_"), "_"), "_")
}

func roleSlug(jobRole, team string) string {
	if slug := joinTokens(tokenize(jobRole), roleTokens); slug != "" {
		return slug
	}
	if slug := joinTokens(tokenize(team), roleTokens); slug != "" {
		return slug
	}
	return "role"
}

func levelSlug(level string) string {
	normalized := strings.TrimSpace(spaces.ReplaceAllString(strings.ReplaceAll(strings.ToLower(level), "-", " "), " "))
	if normalized == "" {
		return "level"
	}
	if slug, ok := levelSlugs[normalized]; ok {
		return slug
	}
	tokens := tokenize(level)
	if slug, ok := levelSlugs[strings.Join(tokens, " ")]; ok {
		return slug
	}
	if slug := joinTokens(tokens, nil); slug != "" {
		return slug
	}
	return "level"
}

func languageSlug(language string) string {
	key := strings.TrimSpace(spaces.ReplaceAllString(strings.ToLower(language), " "))
	if key == "" {
		return "lang"
	}
	if slug, ok := languageSlugs[key]; ok {
		return slug
	}
	key = strings.Trim(underscores.ReplaceAllString(strings.ReplaceAll(key, " ", "_"), "_"), "_")
	if slug, ok := languageSlugs[key]; ok {
		return slug
	}
	runes := []rune(key)
	if len(runes) >= 2 {
		return string(runes[:2])
	}
	if key == "" {
		return "lang"
	}
	return key
}

// OutputFolder returns the "<role>_<level>_<lang>" folder name of a row,
// e.g. "ios_dev_sr_ko" for a Senior iOS Developer in Korean.
func OutputFolder(row Row) string {
	return roleSlug(row.JobRole, row.Team) + "_" + levelSlug(row.Level) + "_" + languageSlug(row.Language)
}

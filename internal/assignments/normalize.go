package assignments

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
	"golang.org/x/text/unicode/norm"
)

// Normalize truncates set to count records, assigns missing or duplicate IDs,
// stamps the job spec onto the header and sanitizes free text for the job's language.
func Normalize(set *types.AssignmentSet, job types.JobSpec, count int) {
	if count > 0 && len(set.Assignments) > count {
		set.Assignments = set.Assignments[:count]
	}

	set.Company = job.CompanyName
	set.JobRole = job.Role
	set.JobLevel = string(job.Level)

	seen := make(map[string]bool)
	for i := range set.Assignments {
		a := &set.Assignments[i]
		id := strings.TrimSpace(a.ID)
		if id == "" || seen[id] {
			id = fmt.Sprintf("A%d", i+1)
		}
		for seen[id] {
			id += "x"
		}
		seen[id] = true
		a.ID = id

		if strings.TrimSpace(a.Summary) == "" {
			a.Summary = a.Mission
		}
		fillNilSlices(a)
	}

	DetachPaths(set)
	Sanitize(set, job.LanguageCode())
}

// DetachPaths clears every dataset and starter code path. Paths are attached only by
// the steps that write the files. Reports whether any path was set.
func DetachPaths(set *types.AssignmentSet) bool {
	changed := false
	for i := range set.Assignments {
		a := &set.Assignments[i]
		for j := range a.Datasets {
			if a.Datasets[j].Path != "" {
				a.Datasets[j].Path = ""
				changed = true
			}
		}
		if a.StarterCode.Path != "" {
			a.StarterCode.Path = ""
			changed = true
		}
	}
	return changed
}

func fillNilSlices(a *types.AssignmentRecord) {
	for _, s := range []*[]string{&a.Requirements, &a.Deliverables, &a.AIGuidelines, &a.Evaluation, &a.DiscussionQuestions} {
		if *s == nil {
			*s = []string{}
		}
	}
	if a.Datasets == nil {
		a.Datasets = []types.DatasetSpec{}
	}
}

// Sanitize strips control characters and letters outside the scripts expected for
// langCode from every free-text field. Latin and script-neutral characters are always kept.
func Sanitize(set *types.AssignmentSet, langCode string) {
	allowed := allowedScripts(langCode)
	clean := func(s string) string { return sanitizeText(s, allowed) }
	cleanAll := func(items []string) {
		for i := range items {
			items[i] = clean(items[i])
		}
	}

	for i := range set.Assignments {
		a := &set.Assignments[i]
		a.Title = clean(a.Title)
		a.Mission = clean(a.Mission)
		a.Summary = clean(a.Summary)
		a.Timeline = clean(a.Timeline)
		cleanAll(a.Requirements)
		cleanAll(a.Deliverables)
		cleanAll(a.AIGuidelines)
		cleanAll(a.Evaluation)
		cleanAll(a.DiscussionQuestions)
		for j := range a.Datasets {
			a.Datasets[j].Description = clean(a.Datasets[j].Description)
			for k := range a.Datasets[j].Columns {
				a.Datasets[j].Columns[k].Description = clean(a.Datasets[j].Columns[k].Description)
			}
		}
		a.StarterCode.Description = clean(a.StarterCode.Description)
	}
}

func allowedScripts(langCode string) []*unicode.RangeTable {
	scripts := []*unicode.RangeTable{unicode.Latin, unicode.Common, unicode.Inherited}
	switch langCode {
	case types.LangKorean:
		scripts = append(scripts, unicode.Hangul)
	case types.LangJapanese:
		scripts = append(scripts, unicode.Hiragana, unicode.Katakana, unicode.Han)
	case types.LangChinese:
		scripts = append(scripts, unicode.Han)
	}
	return scripts
}

func sanitizeText(s string, allowed []*unicode.RangeTable) string {
	s = norm.NFC.String(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r == '\r':
		case unicode.IsControl(r) || unicode.Is(unicode.Cf, r):
		case unicode.IsLetter(r) && !unicode.IsOneOf(allowed, r):
		default:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(collapseSpaces(sb.String()))
}

// collapseSpaces squeezes runs of spaces left behind by removed characters, keeping newlines
func collapseSpaces(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

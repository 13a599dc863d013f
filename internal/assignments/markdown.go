package assignments

import (
	"fmt"
	"os"
	"strings"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

type markdownLabels struct {
	titleFormat  string
	untitled     string
	summary      string
	requirements string
	deliverables string
	aiGuidelines string
	evaluation   string
	timeline     string
	discussion   string
	datasets     string
	starterCode  string
}

var labelsByLanguage = map[string]markdownLabels{
	types.LangKorean: {
		titleFormat:  "# %s 테이크홈 과제",
		untitled:     "과제",
		summary:      "요약",
		requirements: "핵심 요구사항",
		deliverables: "제출물",
		aiGuidelines: "AI 활용 가이드라인",
		evaluation:   "평가 기준",
		timeline:     "예상 소요 시간",
		discussion:   "심층 토론 질문",
		datasets:     "데이터셋",
		starterCode:  "스타터 코드",
	},
	types.LangJapanese: {
		titleFormat:  "# %s 持ち帰り課題",
		untitled:     "課題",
		summary:      "概要",
		requirements: "主要要件",
		deliverables: "提出物",
		aiGuidelines: "AI 活用ガイドライン",
		evaluation:   "評価基準",
		timeline:     "想定所要時間",
		discussion:   "ディスカッション質問",
		datasets:     "データセット",
		starterCode:  "スターターコード",
	},
	types.LangChinese: {
		titleFormat:  "# %s 带回家作业",
		untitled:     "作业",
		summary:      "概要",
		requirements: "核心要求",
		deliverables: "提交物",
		aiGuidelines: "AI 使用指南",
		evaluation:   "评估标准",
		timeline:     "预计用时",
		discussion:   "深入讨论问题",
		datasets:     "数据集",
		starterCode:  "入门代码",
	},
	types.LangEnglish: {
		titleFormat:  "# %s Take-Home Assignments",
		untitled:     "Assignment",
		summary:      "Summary",
		requirements: "Key Requirements",
		deliverables: "Deliverables",
		aiGuidelines: "AI Usage Guidelines",
		evaluation:   "Evaluation Criteria",
		timeline:     "Estimated Time",
		discussion:   "Discussion Questions",
		datasets:     "Datasets",
		starterCode:  "Starter Code",
	},
}

// RenderMarkdown renders a human-readable preview of the assignment set.
// Empty sections are omitted.
func RenderMarkdown(set *types.AssignmentSet, langCode string) string {
	labels, ok := labelsByLanguage[langCode]
	if !ok {
		labels = labelsByLanguage[types.LangEnglish]
	}

	var lines []string
	header := strings.Join(strings.Fields(strings.Join([]string{set.Company, set.JobLevel, set.JobRole}, " ")), " ")
	if header != "" {
		lines = append(lines, fmt.Sprintf(labels.titleFormat, header), "")
	}

	for _, a := range set.Assignments {
		title := a.Title
		if title == "" {
			title = labels.untitled
		}
		lines = append(lines, fmt.Sprintf("## %s", title))
		if a.Mission != "" {
			lines = append(lines, a.Mission, "")
		}

		lines = appendText(lines, labels.summary, a.Summary)
		lines = appendList(lines, labels.requirements, a.Requirements)
		lines = appendList(lines, labels.deliverables, a.Deliverables)
		lines = appendList(lines, labels.aiGuidelines, a.AIGuidelines)
		lines = appendList(lines, labels.evaluation, a.Evaluation)
		lines = appendText(lines, labels.timeline, a.Timeline)
		lines = appendList(lines, labels.discussion, a.DiscussionQuestions)

		var datasets []string
		for _, d := range a.Datasets {
			name := d.Filename
			if name == "" {
				name = d.Name
			}
			item := fmt.Sprintf("`%s` (%s, %d)", name, d.Format, d.Records)
			if d.Description != "" {
				item += ": " + d.Description
			}
			datasets = append(datasets, item)
		}
		lines = appendList(lines, labels.datasets, datasets)

		if a.StarterCode.Filename != "" {
			starter := fmt.Sprintf("`%s` (%s)", a.StarterCode.Filename, a.StarterCode.Language)
			if a.StarterCode.Description != "" {
				starter += ": " + a.StarterCode.Description
			}
			lines = appendText(lines, labels.starterCode, starter)
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

func appendText(lines []string, header, value string) []string {
	if strings.TrimSpace(value) == "" {
		return lines
	}
	return append(lines, "### "+header, value, "")
}

func appendList(lines []string, header string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, "### "+header)
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return append(lines, "")
}

// WriteMarkdown writes the preview to path
func WriteMarkdown(set *types.AssignmentSet, langCode, path string) error {
	if err := os.WriteFile(path, []byte(RenderMarkdown(set, langCode)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

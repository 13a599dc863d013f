package portal

import "github.com/chulminlee01/mrt-tech-test/internal/types"

// Labels are the fixed UI strings of the portal page
type Labels struct {
	PageTitle    string
	Intro        string
	Research     string
	Mission      string
	Summary      string
	Requirements string
	Deliverables string
	AIGuidelines string
	Evaluation   string
	Timeline     string
	Discussion   string
	Downloads    string
	Dataset      string
	StarterCode  string
	Footer       string
}

var labelsByLanguage = map[string]Labels{
	types.LangKorean: {
		PageTitle:    "테이크홈 과제",
		Intro:        "아래 과제 중 하나를 선택해 진행해 주세요.",
		Research:     "직무 리서치 요약",
		Mission:      "미션",
		Summary:      "요약",
		Requirements: "핵심 요구사항",
		Deliverables: "제출물",
		AIGuidelines: "AI 활용 가이드라인",
		Evaluation:   "평가 기준",
		Timeline:     "예상 소요 시간",
		Discussion:   "심층 토론 질문",
		Downloads:    "다운로드",
		Dataset:      "데이터셋",
		StarterCode:  "스타터 코드",
		Footer:       "채용 과제 패키지",
	},
	types.LangJapanese: {
		PageTitle:    "持ち帰り課題",
		Intro:        "以下の課題から一つを選んで取り組んでください。",
		Research:     "職種リサーチ概要",
		Mission:      "ミッション",
		Summary:      "概要",
		Requirements: "主要要件",
		Deliverables: "提出物",
		AIGuidelines: "AI 活用ガイドライン",
		Evaluation:   "評価基準",
		Timeline:     "想定所要時間",
		Discussion:   "ディスカッション質問",
		Downloads:    "ダウンロード",
		Dataset:      "データセット",
		StarterCode:  "スターターコード",
		Footer:       "採用課題パッケージ",
	},
	types.LangChinese: {
		PageTitle:    "带回家作业",
		Intro:        "请从以下作业中选择一项完成。",
		Research:     "岗位调研摘要",
		Mission:      "任务",
		Summary:      "概要",
		Requirements: "核心要求",
		Deliverables: "提交物",
		AIGuidelines: "AI 使用指南",
		Evaluation:   "评估标准",
		Timeline:     "预计用时",
		Discussion:   "深入讨论问题",
		Downloads:    "下载",
		Dataset:      "数据集",
		StarterCode:  "入门代码",
		Footer:       "招聘作业包",
	},
	types.LangEnglish: {
		PageTitle:    "Take-Home Assignments",
		Intro:        "Pick one of the assignments below.",
		Research:     "Role Research Summary",
		Mission:      "Mission",
		Summary:      "Summary",
		Requirements: "Key Requirements",
		Deliverables: "Deliverables",
		AIGuidelines: "AI Usage Guidelines",
		Evaluation:   "Evaluation Criteria",
		Timeline:     "Estimated Time",
		Discussion:   "Discussion Questions",
		Downloads:    "Downloads",
		Dataset:      "Dataset",
		StarterCode:  "Starter Code",
		Footer:       "Recruitment assignment package",
	},
}

// LabelsFor returns the UI strings for a language code, falling back to English
func LabelsFor(langCode string) Labels {
	if l, ok := labelsByLanguage[langCode]; ok {
		return l
	}
	return labelsByLanguage[types.LangEnglish]
}

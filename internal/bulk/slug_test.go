package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputFolder(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"ios senior korean", Row{Team: "iOS", JobRole: "iOS Developer", Level: "Senior", Language: "Korean"}, "ios_dev_sr_ko"},
		{"backend engineer mid level", Row{JobRole: "Backend Engineer", Level: "Mid-level", Language: "English"}, "be_eng_mid_en"},
		{"mid senior level", Row{JobRole: "Frontend Developer", Level: "mid-senior level", Language: "Japanese"}, "fe_dev_mid_senior_ja"},
		{"role from team", Row{Team: "Data", Level: "Lead", Language: "Chinese"}, "data_lead_zh"},
		{"unknown level and language", Row{JobRole: "QA", Level: "Level 3", Language: "Swedish"}, "qa_level_3_sw"},
		{"blank everything", Row{}, "role_level_lang"},
		{"language with spaces", Row{JobRole: "Android Developer", Level: "Junior", Language: "  KOREAN "}, "android_dev_jr_ko"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputFolder(tt.row))
		})
	}
}

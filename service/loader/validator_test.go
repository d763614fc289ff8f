package loader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techintel-service/service/models"
)

func TestValidator_Validate(t *testing.T) {
	nan := math.NaN()
	negative := -1

	tests := []struct {
		name   string
		record models.CompanyRecord
		reason string
	}{
		{"合法记录", models.CompanyRecord{ID: "a", TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 50}, ""},
		{"空ID", models.CompanyRecord{TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 50}, "id is empty"},
		{"负人数", models.CompanyRecord{ID: "a", TotalEmployees: -1, EngineeringPercentage: 0}, "total_employees is negative"},
		{"工程师超过总人数", models.CompanyRecord{ID: "a", TotalEmployees: 10, EngineerCount: 11, EngineeringPercentage: 100}, "exceeds"},
		{"占比越界", models.CompanyRecord{ID: "a", TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 101}, "outside"},
		{"负专利数", models.CompanyRecord{ID: "a", TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 50, PatentCount: &negative}, "patent_count"},
		{"非数值评分", models.CompanyRecord{ID: "a", TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 50, IPStrengthScore: &nan}, "ip_strength_score"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, rejected := v.Validate([]models.CompanyRecord{tt.record})
			if tt.reason == "" {
				assert.Len(t, kept, 1)
				assert.Empty(t, rejected)
				return
			}
			assert.Empty(t, kept)
			require.Len(t, rejected, 1)
			assert.Contains(t, rejected[0].Reason, tt.reason)
		})
	}
}

// TestValidator_KeepsDuplicatesAndMismatches 重复ID与占比偏差只告警
func TestValidator_KeepsDuplicatesAndMismatches(t *testing.T) {
	records := []models.CompanyRecord{
		{ID: "a", RowNo: 1, TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 80},
		{ID: "a", RowNo: 2, TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 50},
	}
	kept, rejected := NewValidator().Validate(records)
	assert.Len(t, kept, 2)
	assert.Empty(t, rejected)
	assert.Equal(t, 80.0, kept[0].EngineeringPercentage, "存储值按源数据保留")
}

/*
 * @module service/loader/validator
 * @description 加载边界的记录校验器，拒绝不满足约束的行
 * @architecture 分层架构 - 数据验证层
 * @documentReference DESIGN.md
 * @stateFlow 逐行检查 -> 记录拒绝原因 -> 输出合法记录
 * @rules 工程师人数不得超过总人数；百分比与人数不一致时只告警不拒绝；重复ID保留并告警
 * @dependencies log/slog, techintel-service/service/models
 * @refs service/loader/csv_loader.go, service/loader/db_loader.go
 */

package loader

import (
	"fmt"
	"log/slog"
	"math"

	"techintel-service/service/models"
)

// DefaultPercentTolerance 工程师占比与人数推算值允许的偏差（百分点）
const DefaultPercentTolerance = 1.0

// Validator 记录校验器
type Validator struct {
	PercentTolerance float64
}

// NewValidator 创建校验器实例
func NewValidator() *Validator {
	return &Validator{PercentTolerance: DefaultPercentTolerance}
}

// Validate 校验记录，返回通过的记录和被拒绝的行
func (v *Validator) Validate(records []models.CompanyRecord) ([]models.CompanyRecord, []models.RowError) {
	kept := make([]models.CompanyRecord, 0, len(records))
	var rejected []models.RowError
	seen := make(map[string]int, len(records))
	mismatches := 0

	for _, r := range records {
		if reason := v.check(&r); reason != "" {
			rejected = append(rejected, models.RowError{Row: r.RowNo, ID: r.ID, Reason: reason})
			continue
		}

		if first, ok := seen[r.ID]; ok {
			slog.Warn("数据集存在重复ID，查找时以首条为准", "id", r.ID, "first_row", first, "row", r.RowNo)
		} else {
			seen[r.ID] = r.RowNo
		}

		if v.percentMismatch(&r) {
			mismatches++
		}
		kept = append(kept, r)
	}

	if mismatches > 0 {
		slog.Warn("工程师占比与人数推算值不一致，按源数据保留",
			"count", mismatches, "tolerance", v.PercentTolerance)
	}
	return kept, rejected
}

// check 返回拒绝原因，空字符串表示通过
func (v *Validator) check(r *models.CompanyRecord) string {
	switch {
	case r.ID == "":
		return "id is empty"
	case r.TotalEmployees < 0:
		return "total_employees is negative"
	case r.EngineerCount < 0:
		return "engineer_count is negative"
	case r.EngineerCount > r.TotalEmployees:
		return fmt.Sprintf("engineer_count %d exceeds total_employees %d", r.EngineerCount, r.TotalEmployees)
	case !finite(r.EngineeringPercentage) || r.EngineeringPercentage < 0 || r.EngineeringPercentage > 100:
		return fmt.Sprintf("engineering_percentage %v outside [0, 100]", r.EngineeringPercentage)
	case r.PatentCount != nil && *r.PatentCount < 0:
		return "patent_count is negative"
	case r.PatentsPerEngineer != nil && (!finite(*r.PatentsPerEngineer) || *r.PatentsPerEngineer < 0):
		return "patents_per_engineer is negative or not a number"
	}

	scores := []struct {
		column models.Column
		value  *float64
	}{
		{models.ColumnTechStrengthScore, r.TechStrengthScore},
		{models.ColumnIPStrengthScore, r.IPStrengthScore},
		{models.ColumnInvestmentScore, r.InvestmentScore},
	}
	for _, s := range scores {
		if s.value != nil && !finite(*s.value) {
			return string(s.column) + " is not a number"
		}
	}
	return ""
}

func (v *Validator) percentMismatch(r *models.CompanyRecord) bool {
	if r.TotalEmployees == 0 {
		return false
	}
	derived := float64(r.EngineerCount) / float64(r.TotalEmployees) * 100
	return math.Abs(derived-r.EngineeringPercentage) > v.PercentTolerance
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

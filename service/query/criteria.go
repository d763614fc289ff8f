package query

import (
	"fmt"
	"math"

	"techintel-service/service/models"
)

// Range 闭区间 [Min, Max]
type Range struct {
	Min float64 `json:"min" example:"0"`
	Max float64 `json:"max" example:"500"`
}

// Contains 判断值是否落在闭区间内
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("%w: %s bounds must be numbers", ErrInvalidCriteria, name)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: %s min %v greater than max %v", ErrInvalidCriteria, name, r.Min, r.Max)
	}
	return nil
}

// FilterCriteria 过滤条件，各谓词之间为逻辑与
//
// 集合类谓词: nil 表示不限制，非nil的空集合表示不匹配任何记录。
// 调用方需要"全选"时传入完整的分类集合。
type FilterCriteria struct {
	Sectors               []string `json:"sectors"`
	FundingStages         []string `json:"funding_stages"`
	Regions               []string `json:"regions"`
	TotalEmployees        *Range   `json:"total_employees,omitempty"`
	EngineeringPercentage *Range   `json:"engineering_percentage,omitempty"`
	PatentMin             *int     `json:"patent_min,omitempty" example:"1"`
	IPScoreMin            *float64 `json:"ip_score_min,omitempty" example:"60"`
}

// Validate 校验条件是否合法
func (c FilterCriteria) Validate() error {
	if c.TotalEmployees != nil {
		if err := c.TotalEmployees.validate(string(models.ColumnTotalEmployees)); err != nil {
			return err
		}
	}
	if c.EngineeringPercentage != nil {
		if err := c.EngineeringPercentage.validate(string(models.ColumnEngineeringPercentage)); err != nil {
			return err
		}
	}
	if c.PatentMin != nil && *c.PatentMin < 0 {
		return fmt.Errorf("%w: patent_min must not be negative", ErrInvalidCriteria)
	}
	if c.IPScoreMin != nil && math.IsNaN(*c.IPScoreMin) {
		return fmt.Errorf("%w: ip_score_min must be a number", ErrInvalidCriteria)
	}
	return nil
}

// predicate 单个已编译的谓词
type predicate func(r *models.CompanyRecord) bool

// compile 将条件编译为谓词列表，数据集缺失的可选列对应的谓词被跳过
func (c FilterCriteria) compile(columns models.ColumnSet) []predicate {
	var preds []predicate

	if c.Sectors != nil {
		allowed := toSet(c.Sectors)
		preds = append(preds, func(r *models.CompanyRecord) bool {
			_, ok := allowed[r.Sector]
			return ok
		})
	}
	if c.TotalEmployees != nil {
		rng := *c.TotalEmployees
		preds = append(preds, func(r *models.CompanyRecord) bool {
			return rng.Contains(float64(r.TotalEmployees))
		})
	}
	if c.EngineeringPercentage != nil {
		rng := *c.EngineeringPercentage
		preds = append(preds, func(r *models.CompanyRecord) bool {
			return rng.Contains(r.EngineeringPercentage)
		})
	}
	if c.FundingStages != nil && columns.Has(models.ColumnFundingStage) {
		allowed := toSet(c.FundingStages)
		preds = append(preds, func(r *models.CompanyRecord) bool {
			_, ok := allowed[r.FundingStage]
			return ok
		})
	}
	if c.Regions != nil && columns.Has(models.ColumnRegion) {
		allowed := toSet(c.Regions)
		preds = append(preds, func(r *models.CompanyRecord) bool {
			_, ok := allowed[r.Region]
			return ok
		})
	}
	if c.PatentMin != nil && columns.Has(models.ColumnPatentCount) {
		floor := *c.PatentMin
		preds = append(preds, func(r *models.CompanyRecord) bool {
			return r.PatentCount != nil && *r.PatentCount >= floor
		})
	}
	if c.IPScoreMin != nil && columns.Has(models.ColumnIPStrengthScore) {
		floor := *c.IPScoreMin
		preds = append(preds, func(r *models.CompanyRecord) bool {
			return r.IPStrengthScore != nil && *r.IPStrengthScore >= floor
		})
	}

	return preds
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

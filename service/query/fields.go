package query

import (
	"fmt"
	"sort"

	"techintel-service/service/models"
)

// numericAccessor 读取记录上的数值字段，第二个返回值表示该值是否存在
type numericAccessor func(r *models.CompanyRecord) (float64, bool)

// categoryAccessor 读取记录上的分类字段
type categoryAccessor func(r *models.CompanyRecord) string

func optionalFloat(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

var numericFields = map[models.Column]numericAccessor{
	models.ColumnTotalEmployees: func(r *models.CompanyRecord) (float64, bool) {
		return float64(r.TotalEmployees), true
	},
	models.ColumnEngineerCount: func(r *models.CompanyRecord) (float64, bool) {
		return float64(r.EngineerCount), true
	},
	models.ColumnEngineeringPercentage: func(r *models.CompanyRecord) (float64, bool) {
		return r.EngineeringPercentage, true
	},
	models.ColumnTechStrengthScore: func(r *models.CompanyRecord) (float64, bool) {
		return optionalFloat(r.TechStrengthScore)
	},
	models.ColumnIPStrengthScore: func(r *models.CompanyRecord) (float64, bool) {
		return optionalFloat(r.IPStrengthScore)
	},
	models.ColumnInvestmentScore: func(r *models.CompanyRecord) (float64, bool) {
		return optionalFloat(r.InvestmentScore)
	},
	models.ColumnPatentCount: func(r *models.CompanyRecord) (float64, bool) {
		if r.PatentCount == nil {
			return 0, false
		}
		return float64(*r.PatentCount), true
	},
	models.ColumnPatentsPerEngineer: func(r *models.CompanyRecord) (float64, bool) {
		return optionalFloat(r.PatentsPerEngineer)
	},
}

var categoryFields = map[models.Column]categoryAccessor{
	models.ColumnSector:       func(r *models.CompanyRecord) string { return r.Sector },
	models.ColumnFundingStage: func(r *models.CompanyRecord) string { return r.FundingStage },
	models.ColumnRegion:       func(r *models.CompanyRecord) string { return r.Region },
}

func lookupNumeric(field string) (numericAccessor, error) {
	acc, ok := numericFields[models.Column(field)]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a numeric field", ErrFieldNotFound, field)
	}
	return acc, nil
}

func lookupCategory(field string) (categoryAccessor, error) {
	acc, ok := categoryFields[models.Column(field)]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a categorical field", ErrFieldNotFound, field)
	}
	return acc, nil
}

// SortableFields 返回可用于 SortByScore 的字段名
func SortableFields() []string {
	return fieldNames(numericFields)
}

// CategoricalFields 返回可用于 Breakdown 的字段名
func CategoricalFields() []string {
	return fieldNames(categoryFields)
}

func fieldNames[V any](m map[models.Column]V) []string {
	names := make([]string, 0, len(m))
	for c := range m {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

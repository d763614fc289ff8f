package query

import (
	"sort"

	"techintel-service/service/models"
)

// UnknownCategory 分类值缺失时的统计标签
const UnknownCategory = "unknown"

// Facets 数据集中可供筛选的分类取值和数值范围
type Facets struct {
	Sectors               []string `json:"sectors"`
	FundingStages         []string `json:"funding_stages,omitempty"`
	Regions               []string `json:"regions,omitempty"`
	TotalEmployees        *Range   `json:"total_employees,omitempty"`
	EngineeringPercentage *Range   `json:"engineering_percentage,omitempty"`
	PatentCount           *Range   `json:"patent_count,omitempty"`
	Columns               []string `json:"columns"`
}

// CategoryCount 分类计数
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DiscoverFacets 扫描数据集，得到各分类字段的取值集合和数值边界
func DiscoverFacets(ds *models.Dataset) Facets {
	facets := Facets{Sectors: []string{}, Columns: []string{}}
	if ds == nil {
		return facets
	}
	facets.Columns = ds.Columns.List()

	facets.Sectors = distinct(ds.Records, categoryFields[models.ColumnSector])
	if ds.HasColumn(models.ColumnFundingStage) {
		facets.FundingStages = distinct(ds.Records, categoryFields[models.ColumnFundingStage])
	}
	if ds.HasColumn(models.ColumnRegion) {
		facets.Regions = distinct(ds.Records, categoryFields[models.ColumnRegion])
	}

	facets.TotalEmployees = bounds(ds.Records, numericFields[models.ColumnTotalEmployees])
	facets.EngineeringPercentage = bounds(ds.Records, numericFields[models.ColumnEngineeringPercentage])
	if ds.HasColumn(models.ColumnPatentCount) {
		facets.PatentCount = bounds(ds.Records, numericFields[models.ColumnPatentCount])
	}
	return facets
}

func distinct(records []models.CompanyRecord, acc categoryAccessor) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for i := range records {
		v := acc(&records[i])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func bounds(records []models.CompanyRecord, acc numericAccessor) *Range {
	var (
		rng   Range
		found bool
	)
	for i := range records {
		v, ok := acc(&records[i])
		if !ok {
			continue
		}
		if !found {
			rng = Range{Min: v, Max: v}
			found = true
			continue
		}
		if v < rng.Min {
			rng.Min = v
		}
		if v > rng.Max {
			rng.Max = v
		}
	}
	if !found {
		return nil
	}
	return &rng
}

// Breakdown 按分类字段计数，结果按数量降序、取值升序排列
func Breakdown(records []models.CompanyRecord, field string) ([]CategoryCount, error) {
	acc, err := lookupCategory(field)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for i := range records {
		v := acc(&records[i])
		if v == "" {
			v = UnknownCategory
		}
		counts[v]++
	}

	result := make([]CategoryCount, 0, len(counts))
	for v, n := range counts {
		result = append(result, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})
	return result, nil
}

package query

import "techintel-service/service/models"

// Aggregates 过滤结果的汇总统计
//
// 空集合的均值为0。可选列统计项仅在数据集含有该列时给出，
// 其均值只计算有值的记录。
type Aggregates struct {
	Count                     int      `json:"count"`
	EngineerSum               int64    `json:"engineer_sum"`
	EngineerMean              float64  `json:"engineer_mean"`
	EngineeringPercentageMean float64  `json:"engineering_percentage_mean"`
	TotalEmployeesMean        float64  `json:"total_employees_mean"`
	PatentSum                 *int64   `json:"patent_sum,omitempty"`
	TechScoreMean             *float64 `json:"tech_strength_score_mean,omitempty"`
	IPScoreMean               *float64 `json:"ip_strength_score_mean,omitempty"`
	InvestmentScoreMean       *float64 `json:"investment_score_mean,omitempty"`
}

type meanAccumulator struct {
	sum float64
	n   int
}

func (m *meanAccumulator) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *meanAccumulator) mean() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Aggregate 计算记录集合的汇总统计
func Aggregate(records []models.CompanyRecord, columns models.ColumnSet) Aggregates {
	agg := Aggregates{Count: len(records)}

	var (
		employeeSum int64
		pctSum      float64
		patentSum   int64
		tech        meanAccumulator
		ip          meanAccumulator
		investment  meanAccumulator
	)

	for i := range records {
		r := &records[i]
		agg.EngineerSum += int64(r.EngineerCount)
		employeeSum += int64(r.TotalEmployees)
		pctSum += r.EngineeringPercentage
		if r.PatentCount != nil {
			patentSum += int64(*r.PatentCount)
		}
		tech.add(r.TechStrengthScore)
		ip.add(r.IPStrengthScore)
		investment.add(r.InvestmentScore)
	}

	if n := len(records); n > 0 {
		agg.EngineerMean = float64(agg.EngineerSum) / float64(n)
		agg.EngineeringPercentageMean = pctSum / float64(n)
		agg.TotalEmployeesMean = float64(employeeSum) / float64(n)
	}

	if columns.Has(models.ColumnPatentCount) {
		agg.PatentSum = &patentSum
	}
	if columns.Has(models.ColumnTechStrengthScore) {
		v := tech.mean()
		agg.TechScoreMean = &v
	}
	if columns.Has(models.ColumnIPStrengthScore) {
		v := ip.mean()
		agg.IPScoreMean = &v
	}
	if columns.Has(models.ColumnInvestmentScore) {
		v := investment.mean()
		agg.InvestmentScoreMean = &v
	}

	return agg
}

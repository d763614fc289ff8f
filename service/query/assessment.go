package query

import "techintel-service/service/models"

// DensityBand 技术密度分档
type DensityBand string

const (
	DensityLow    DensityBand = "low"
	DensityMedium DensityBand = "medium"
	DensityHigh   DensityBand = "high"
)

// Verdict 综合评估结论
type Verdict string

const (
	VerdictStrong  Verdict = "strong"
	VerdictMixed   Verdict = "mixed"
	VerdictWeak    Verdict = "weak"
	VerdictUnrated Verdict = "unrated"
)

// 分档阈值
const (
	densityMediumFloor = 40.0
	densityHighFloor   = 70.0
	verdictStrongAbove = 80.0
	verdictMixedAbove  = 60.0
)

// Assessment 单个企业的深度评估
type Assessment struct {
	DensityBand  DensityBand `json:"density_band"`
	OverallScore *float64    `json:"overall_score,omitempty"`
	Verdict      Verdict     `json:"verdict"`
}

// Deltas 相对基线均值的差值
type Deltas struct {
	EngineeringPercentage float64  `json:"engineering_percentage"`
	TechStrengthScore     *float64 `json:"tech_strength_score,omitempty"`
	InvestmentScore       *float64 `json:"investment_score,omitempty"`
}

// Assess 根据记录自身的指标给出技术密度分档和综合结论
//
// 综合分为技术、知识产权、投资三项得分中已有项的平均值。
func Assess(r models.CompanyRecord) Assessment {
	a := Assessment{DensityBand: densityBand(r.EngineeringPercentage), Verdict: VerdictUnrated}

	var acc meanAccumulator
	acc.add(r.TechStrengthScore)
	acc.add(r.IPStrengthScore)
	acc.add(r.InvestmentScore)
	if acc.n == 0 {
		return a
	}

	overall := acc.mean()
	a.OverallScore = &overall
	switch {
	case overall > verdictStrongAbove:
		a.Verdict = VerdictStrong
	case overall > verdictMixedAbove:
		a.Verdict = VerdictMixed
	default:
		a.Verdict = VerdictWeak
	}
	return a
}

func densityBand(pct float64) DensityBand {
	switch {
	case pct < densityMediumFloor:
		return DensityLow
	case pct < densityHighFloor:
		return DensityMedium
	default:
		return DensityHigh
	}
}

// Compare 计算记录相对基线汇总的差值，基线或记录缺失的项不输出
func Compare(r models.CompanyRecord, baseline Aggregates) Deltas {
	d := Deltas{EngineeringPercentage: r.EngineeringPercentage - baseline.EngineeringPercentageMean}
	d.TechStrengthScore = diff(r.TechStrengthScore, baseline.TechScoreMean)
	d.InvestmentScore = diff(r.InvestmentScore, baseline.InvestmentScoreMean)
	return d
}

func diff(v, base *float64) *float64 {
	if v == nil || base == nil {
		return nil
	}
	d := *v - *base
	return &d
}

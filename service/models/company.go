/*
 * @module service/models/company
 * @description 企业技术指标模型定义，包括企业记录、数据集快照和列集合
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference DESIGN.md
 * @stateFlow 数据加载 -> 快照构建 -> 只读查询
 * @rules 快照一经发布不可修改，可选字段使用指针表示缺失值
 * @dependencies sort, time
 * @refs service/loader, service/query
 */

package models

import (
	"sort"
	"time"
)

// Column 数据集列名
type Column string

const (
	ColumnID                    Column = "id"
	ColumnName                  Column = "name"
	ColumnSector                Column = "sector"
	ColumnTotalEmployees        Column = "total_employees"
	ColumnEngineerCount         Column = "engineer_count"
	ColumnEngineeringPercentage Column = "engineering_percentage"
	ColumnFundingStage          Column = "funding_stage"
	ColumnTechStrengthScore     Column = "tech_strength_score"
	ColumnIPStrengthScore       Column = "ip_strength_score"
	ColumnInvestmentScore       Column = "investment_score"
	ColumnPatentCount           Column = "patent_count"
	ColumnPatentsPerEngineer    Column = "patents_per_engineer"
	ColumnRegion                Column = "region"
)

// RequiredColumns 每个数据集必须具备的列
var RequiredColumns = []Column{
	ColumnID,
	ColumnSector,
	ColumnTotalEmployees,
	ColumnEngineerCount,
	ColumnEngineeringPercentage,
}

// AllColumns 记录结构支持的全部列
var AllColumns = []Column{
	ColumnID,
	ColumnName,
	ColumnSector,
	ColumnTotalEmployees,
	ColumnEngineerCount,
	ColumnEngineeringPercentage,
	ColumnFundingStage,
	ColumnTechStrengthScore,
	ColumnIPStrengthScore,
	ColumnInvestmentScore,
	ColumnPatentCount,
	ColumnPatentsPerEngineer,
	ColumnRegion,
}

// ColumnSet 数据集中实际存在的列
type ColumnSet map[Column]struct{}

// NewColumnSet 根据列名创建列集合
func NewColumnSet(columns ...Column) ColumnSet {
	set := make(ColumnSet, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return set
}

// Has 判断列是否存在
func (s ColumnSet) Has(c Column) bool {
	_, ok := s[c]
	return ok
}

// List 返回排序后的列名
func (s ColumnSet) List() []string {
	list := make([]string, 0, len(s))
	for c := range s {
		list = append(list, string(c))
	}
	sort.Strings(list)
	return list
}

// CompanyRecord 企业指标记录
type CompanyRecord struct {
	ID                    string   `json:"id" gorm:"primaryKey;type:varchar(255)" example:"stripe"`
	Name                  string   `json:"name" gorm:"size:255" example:"Stripe"`
	Sector                string   `json:"sector" gorm:"not null;size:100;index" example:"fintech"`
	TotalEmployees        int      `json:"total_employees" gorm:"not null;default:0" example:"127"`
	EngineerCount         int      `json:"engineer_count" gorm:"not null;default:0" example:"93"`
	EngineeringPercentage float64  `json:"engineering_percentage" gorm:"not null;default:0" example:"73.2"`
	FundingStage          string   `json:"funding_stage,omitempty" gorm:"size:50;index" example:"Series B"`
	TechStrengthScore     *float64 `json:"tech_strength_score,omitempty" example:"81.5"`
	IPStrengthScore       *float64 `json:"ip_strength_score,omitempty" example:"64"`
	InvestmentScore       *float64 `json:"investment_score,omitempty" example:"77.3"`
	PatentCount           *int     `json:"patent_count,omitempty" example:"12"`
	PatentsPerEngineer    *float64 `json:"patents_per_engineer,omitempty" example:"0.129"`
	Region                string   `json:"region,omitempty" gorm:"size:100" example:"SF Bay Area"`
	// 源数据中的行序，用于数据库来源保持插入顺序
	RowNo int `json:"-" gorm:"column:row_no;index"`
}

// TableName 指定表名
func (CompanyRecord) TableName() string {
	return "company_records"
}

// DisplayName 返回展示名称，缺失时回退到ID
func (r CompanyRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// Dataset 数据集快照，发布后只读
type Dataset struct {
	Version       string          `json:"version"`
	Source        string          `json:"source"`
	LoadedAt      time.Time       `json:"loaded_at"`
	SourceModTime time.Time       `json:"source_mod_time,omitempty"`
	Columns       ColumnSet       `json:"-"`
	Records       []CompanyRecord `json:"-"`
	Rejected      []RowError      `json:"rejected,omitempty"`
}

// Len 返回记录数，nil安全
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// HasColumn 判断数据集是否包含某列，nil安全
func (d *Dataset) HasColumn(c Column) bool {
	if d == nil {
		return false
	}
	return d.Columns.Has(c)
}

// RowError 加载边界被拒绝的行
type RowError struct {
	Row    int    `json:"row"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

/*
 * @module service/query/engine
 * @description 企业数据查询引擎，提供过滤、排序、按ID查找和分页
 * @architecture 纯函数组件 - 无状态计算层
 * @documentReference DESIGN.md
 * @stateFlow 条件校验 -> 谓词编译 -> 顺序过滤 -> 汇总统计
 * @rules 不修改输入数据集，不使用随机数，相同输入产生相同输出
 * @dependencies techintel-service/service/models
 * @refs service/company/company_service.go
 */

package query

import (
	"fmt"
	"sort"

	"techintel-service/service/models"
)

// Result 过滤结果
type Result struct {
	Matches    []models.CompanyRecord `json:"matches"`
	Aggregates Aggregates             `json:"aggregates"`
}

// Filter 按条件过滤数据集，返回保持原顺序的子序列及汇总统计
func Filter(ds *models.Dataset, criteria FilterCriteria) (*Result, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	var (
		records []models.CompanyRecord
		columns models.ColumnSet
	)
	if ds != nil {
		records = ds.Records
		columns = ds.Columns
	}

	preds := criteria.compile(columns)
	matches := make([]models.CompanyRecord, 0, len(records))
	for i := range records {
		if matchesAll(&records[i], preds) {
			matches = append(matches, records[i])
		}
	}

	return &Result{
		Matches:    matches,
		Aggregates: Aggregate(matches, columns),
	}, nil
}

func matchesAll(r *models.CompanyRecord, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

// SortByScore 按数值字段稳定排序，返回新切片
//
// 缺失值无论升降序都排在末尾，值相等的记录保持输入中的相对顺序。
func SortByScore(records []models.CompanyRecord, field string, descending bool) ([]models.CompanyRecord, error) {
	acc, err := lookupNumeric(field)
	if err != nil {
		return nil, err
	}

	sorted := make([]models.CompanyRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		vi, okI := acc(&sorted[i])
		vj, okJ := acc(&sorted[j])
		switch {
		case !okI:
			return false
		case !okJ:
			return true
		case descending:
			return vi > vj
		default:
			return vi < vj
		}
	})

	return sorted, nil
}

// Lookup 在调用方给定的记录集合中按ID精确查找，重复ID时返回第一条
func Lookup(records []models.CompanyRecord, id string) (models.CompanyRecord, error) {
	for i := range records {
		if records[i].ID == id {
			return records[i], nil
		}
	}
	return models.CompanyRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Page 截取展示窗口，limit为0表示不限制
func Page(records []models.CompanyRecord, offset, limit int) ([]models.CompanyRecord, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", ErrInvalidCriteria)
	}
	if offset >= len(records) {
		return []models.CompanyRecord{}, nil
	}
	end := len(records)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return records[offset:end], nil
}

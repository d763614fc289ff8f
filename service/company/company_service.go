/*
 * @module service/company/company_service
 * @description 企业查询服务，在当前数据集快照上组合过滤、排序、分页和深度分析
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 获取快照 -> 过滤 -> 排序 -> 分页 -> 汇总/分类统计
 * @rules 一次请求只读取一个快照；数据集未就绪时查询返回空结果而非错误
 * @dependencies techintel-service/service/query, techintel-service/service/models
 * @refs api/controllers/company_controller.go
 */

package company

import (
	"fmt"
	"log/slog"

	"techintel-service/service/loader"
	"techintel-service/service/models"
	"techintel-service/service/query"
)

// DefaultSortField 未指定排序字段时使用
const DefaultSortField = string(models.ColumnEngineeringPercentage)

// SnapshotSource 提供当前数据集快照
type SnapshotSource interface {
	Current() *models.Dataset
}

// QueryRequest 查询请求
type QueryRequest struct {
	query.FilterCriteria
	SortBy     string `json:"sort_by,omitempty" example:"engineering_percentage"`
	Descending *bool  `json:"descending,omitempty" example:"true"`
	Offset     int    `json:"offset,omitempty" example:"0"`
	Limit      int    `json:"limit,omitempty" example:"20"`
}

// QueryResponse 查询结果
type QueryResponse struct {
	DatasetReady bool                             `json:"dataset_ready"`
	Version      string                           `json:"version,omitempty"`
	Total        int                              `json:"total"`
	Offset       int                              `json:"offset"`
	Limit        int                              `json:"limit"`
	SortBy       string                           `json:"sort_by"`
	Descending   bool                             `json:"descending"`
	Items        []models.CompanyRecord           `json:"items"`
	Aggregates   query.Aggregates                 `json:"aggregates"`
	Breakdowns   map[string][]query.CategoryCount `json:"breakdowns"`
}

// NameOption 可供深度分析选择的企业
type NameOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeepDive 单个企业的深度分析
type DeepDive struct {
	Version         string               `json:"version"`
	Record          models.CompanyRecord `json:"record"`
	Assessment      query.Assessment     `json:"assessment"`
	DatasetBaseline query.Aggregates     `json:"dataset_baseline"`
	SectorBaseline  query.Aggregates     `json:"sector_baseline"`
	VsDataset       query.Deltas         `json:"vs_dataset"`
	VsSector        query.Deltas         `json:"vs_sector"`
}

// Overview 数据集概览，用于筛选面板和统计栏
type Overview struct {
	DatasetReady   bool             `json:"dataset_ready"`
	Version        string           `json:"version,omitempty"`
	Facets         query.Facets     `json:"facets"`
	Aggregates     query.Aggregates `json:"aggregates"`
	SortableFields []string         `json:"sortable_fields"`
}

// CompanyService 企业查询服务
type CompanyService struct {
	source SnapshotSource
}

// NewCompanyService 创建企业查询服务
func NewCompanyService(source SnapshotSource) *CompanyService {
	return &CompanyService{source: source}
}

// Query 过滤、排序并分页
func (s *CompanyService) Query(req QueryRequest) (*QueryResponse, error) {
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = DefaultSortField
	}
	descending := true
	if req.Descending != nil {
		descending = *req.Descending
	}

	ds := s.source.Current()
	result, err := query.Filter(ds, req.FilterCriteria)
	if err != nil {
		return nil, err
	}
	ordered, err := query.SortByScore(result.Matches, sortBy, descending)
	if err != nil {
		return nil, err
	}
	page, err := query.Page(ordered, req.Offset, req.Limit)
	if err != nil {
		return nil, err
	}

	resp := &QueryResponse{
		DatasetReady: ds != nil,
		Total:        len(ordered),
		Offset:       req.Offset,
		Limit:        req.Limit,
		SortBy:       sortBy,
		Descending:   descending,
		Items:        page,
		Aggregates:   result.Aggregates,
		Breakdowns:   make(map[string][]query.CategoryCount),
	}
	if ds == nil {
		return resp, nil
	}
	resp.Version = ds.Version

	for _, field := range query.CategoricalFields() {
		if !ds.HasColumn(models.Column(field)) {
			continue
		}
		counts, err := query.Breakdown(result.Matches, field)
		if err != nil {
			return nil, err
		}
		resp.Breakdowns[field] = counts
	}

	slog.Debug("企业查询完成", "version", ds.Version, "total", resp.Total, "sort_by", sortBy)
	return resp, nil
}

// Names 返回匹配条件的企业，保持数据集顺序
func (s *CompanyService) Names(criteria query.FilterCriteria) ([]NameOption, error) {
	result, err := query.Filter(s.source.Current(), criteria)
	if err != nil {
		return nil, err
	}
	names := make([]NameOption, 0, len(result.Matches))
	for _, r := range result.Matches {
		names = append(names, NameOption{ID: r.ID, Name: r.DisplayName()})
	}
	return names, nil
}

// DeepDive 按ID查找企业并与全量及同行业基线对比
func (s *CompanyService) DeepDive(id string) (*DeepDive, error) {
	ds := s.source.Current()
	if ds == nil {
		return nil, fmt.Errorf("%w: no snapshot loaded", loader.ErrDataUnavailable)
	}

	record, err := query.Lookup(ds.Records, id)
	if err != nil {
		return nil, err
	}

	datasetBaseline := query.Aggregate(ds.Records, ds.Columns)
	sectorResult, err := query.Filter(ds, query.FilterCriteria{Sectors: []string{record.Sector}})
	if err != nil {
		return nil, err
	}

	return &DeepDive{
		Version:         ds.Version,
		Record:          record,
		Assessment:      query.Assess(record),
		DatasetBaseline: datasetBaseline,
		SectorBaseline:  sectorResult.Aggregates,
		VsDataset:       query.Compare(record, datasetBaseline),
		VsSector:        query.Compare(record, sectorResult.Aggregates),
	}, nil
}

// Overview 返回筛选面板的可选项和全量统计
func (s *CompanyService) Overview() *Overview {
	ds := s.source.Current()
	overview := &Overview{
		DatasetReady:   ds != nil,
		Facets:         query.DiscoverFacets(ds),
		SortableFields: query.SortableFields(),
	}
	if ds != nil {
		overview.Version = ds.Version
		overview.Aggregates = query.Aggregate(ds.Records, ds.Columns)
	}
	return overview
}

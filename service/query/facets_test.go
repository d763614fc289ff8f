package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techintel-service/service/models"
)

// TestDiscoverFacets 测试分类取值与数值范围
func TestDiscoverFacets(t *testing.T) {
	facets := DiscoverFacets(patentDataset())

	assert.Equal(t, []string{"ai", "fintech", "health"}, facets.Sectors)
	assert.Equal(t, []string{"Seed", "Series A", "Series B"}, facets.FundingStages)
	assert.Equal(t, []string{"NYC", "Seattle"}, facets.Regions, "空地区不作为可选值")
	assert.Equal(t, &Range{Min: 10, Max: 300}, facets.TotalEmployees)
	assert.Equal(t, &Range{Min: 20, Max: 80}, facets.EngineeringPercentage)
	assert.Equal(t, &Range{Min: 0, Max: 9}, facets.PatentCount)
	assert.Contains(t, facets.Columns, "patent_count")
}

// TestDiscoverFacets_BaseDataset 测试不含可选列的数据集
func TestDiscoverFacets_BaseDataset(t *testing.T) {
	facets := DiscoverFacets(scenarioDataset())

	assert.Equal(t, []string{"fintech", "health"}, facets.Sectors)
	assert.Nil(t, facets.FundingStages)
	assert.Nil(t, facets.Regions)
	assert.Nil(t, facets.PatentCount)
}

// TestDiscoverFacets_Empty 测试空数据集
func TestDiscoverFacets_Empty(t *testing.T) {
	facets := DiscoverFacets(nil)
	assert.Empty(t, facets.Sectors)
	assert.Nil(t, facets.TotalEmployees)

	facets = DiscoverFacets(&models.Dataset{Columns: models.NewColumnSet(models.RequiredColumns...)})
	assert.Empty(t, facets.Sectors)
	assert.Nil(t, facets.EngineeringPercentage)
}

// TestBreakdown 测试分类计数
func TestBreakdown(t *testing.T) {
	records := patentDataset().Records

	sectors, err := Breakdown(records, "sector")
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{Value: "ai", Count: 2},
		{Value: "fintech", Count: 1},
		{Value: "health", Count: 1},
	}, sectors)

	regions, err := Breakdown(records, "region")
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{Value: "NYC", Count: 2},
		{Value: "Seattle", Count: 1},
		{Value: UnknownCategory, Count: 1},
	}, regions)

	empty, err := Breakdown(nil, "funding_stage")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Breakdown(records, "total_employees")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

// TestFieldLists 测试字段列表
func TestFieldLists(t *testing.T) {
	assert.Contains(t, SortableFields(), "investment_score")
	assert.Contains(t, SortableFields(), "tech_strength_score")
	assert.NotContains(t, SortableFields(), "sector")
	assert.Equal(t, []string{"funding_stage", "region", "sector"}, CategoricalFields())
}

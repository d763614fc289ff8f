/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference DESIGN.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"techintel-service/service/models"
)

// SampleCSV 含专利列的样例数据集
const SampleCSV = `id,name,sector,total_employees,engineer_count,engineering_percentage,funding_stage,tech_strength_score,ip_strength_score,investment_score,patent_count,patents_per_engineer,region
stripe,Stripe,fintech,127,93,73.2,Series B,88,71,84,12,0.129,SF Bay Area
plaid,Plaid,fintech,60,41,68.3,Series A,79,55,76,3,0.073,SF Bay Area
medly,Medly,health,210,42,20,Series C,52,40,48,1,0.024,NYC
deepcore,DeepCore AI,ai,45,38,84.4,Seed,93,88,90,9,0.237,Seattle
carebot,CareBot,health,30,18,60,Seed,70,,66,,,Boston
`

// BaseCSV 不含可选列的基础数据集
const BaseCSV = `id,sector,total_employees,engineer_count,engineering_percentage
A,fintech,20,15,75.0
B,health,200,40,20.0
`

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	if err := db.AutoMigrate(&models.CompanyRecord{}); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", models.CompanyRecord{}.TableName()))
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB  *gorm.DB
	seq int
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// CompanyOption 企业记录选项函数类型
type CompanyOption func(*models.CompanyRecord)

// WithSector 设置行业
func WithSector(sector string) CompanyOption {
	return func(r *models.CompanyRecord) { r.Sector = sector }
}

// WithHeadcount 设置总人数与工程师人数，并同步工程师占比
func WithHeadcount(total, engineers int) CompanyOption {
	return func(r *models.CompanyRecord) {
		r.TotalEmployees = total
		r.EngineerCount = engineers
		if total > 0 {
			r.EngineeringPercentage = float64(engineers) / float64(total) * 100
		}
	}
}

// WithPatents 设置专利数量
func WithPatents(n int) CompanyOption {
	return func(r *models.CompanyRecord) { r.PatentCount = &n }
}

// WithInvestmentScore 设置投资评分
func WithInvestmentScore(score float64) CompanyOption {
	return func(r *models.CompanyRecord) { r.InvestmentScore = &score }
}

// CreateCompany 创建测试企业记录，行序按创建顺序递增
func (f *TestDataFactory) CreateCompany(id string, opts ...CompanyOption) *models.CompanyRecord {
	f.seq++
	record := &models.CompanyRecord{
		ID:                    id,
		Name:                  "测试企业 " + id,
		Sector:                "fintech",
		TotalEmployees:        100,
		EngineerCount:         50,
		EngineeringPercentage: 50,
		RowNo:                 f.seq,
	}

	// 应用选项
	for _, opt := range opts {
		opt(record)
	}

	if err := f.DB.Create(record).Error; err != nil {
		panic(fmt.Sprintf("failed to create test company: %v", err))
	}
	return record
}

// WriteTempFile 在测试临时目录写入文件并返回路径
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// DoJSONRequest 发送JSON请求并返回响应记录器
func DoJSONRequest(t *testing.T, handler http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeJSON 解析响应体
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	err := json.NewDecoder(w.Body).Decode(v)
	assert.NoError(t, err, "响应体应为合法JSON")
}

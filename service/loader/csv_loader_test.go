package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"techintel-service/service/models"
	"techintel-service/testutil"
)

// TestCSVLoader_LoadFile 测试从本地文件加载
func TestCSVLoader_LoadFile(t *testing.T) {
	path := testutil.WriteTempFile(t, "companies.csv", testutil.SampleCSV)
	l := NewCSVLoader(path, "", "")

	ds, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "csv:"+path, ds.Source)
	assert.False(t, ds.SourceModTime.IsZero(), "本地文件应记录修改时间")
	require.Len(t, ds.Records, 5)
	assert.Empty(t, ds.Rejected)

	stripe := ds.Records[0]
	assert.Equal(t, "stripe", stripe.ID)
	assert.Equal(t, "Stripe", stripe.Name)
	assert.Equal(t, 127, stripe.TotalEmployees)
	assert.Equal(t, 93, stripe.EngineerCount)
	assert.Equal(t, 73.2, stripe.EngineeringPercentage)
	assert.Equal(t, "Series B", stripe.FundingStage)
	require.NotNil(t, stripe.PatentCount)
	assert.Equal(t, 12, *stripe.PatentCount)
	assert.Equal(t, 1, stripe.RowNo)

	carebot := ds.Records[4]
	assert.Nil(t, carebot.IPStrengthScore, "空单元格表示缺失值")
	assert.Nil(t, carebot.PatentCount)
	assert.Equal(t, "Boston", carebot.Region)

	for _, c := range models.AllColumns {
		assert.True(t, ds.HasColumn(c), "样例数据应包含列 %s", c)
	}
}

// TestCSVLoader_BaseColumns 测试不含可选列的数据集
func TestCSVLoader_BaseColumns(t *testing.T) {
	ds, err := ParseCSV(strings.NewReader(testutil.BaseCSV), NewValidator())
	require.NoError(t, err)

	assert.Len(t, ds.Records, 2)
	assert.True(t, ds.HasColumn(models.ColumnSector))
	assert.False(t, ds.HasColumn(models.ColumnPatentCount))
	assert.False(t, ds.HasColumn(models.ColumnFundingStage))
}

// TestParseCSV_HeaderAliases 测试表头别名与名称回退为ID
func TestParseCSV_HeaderAliases(t *testing.T) {
	content := "\ufeffCompany Name, Industry ,Employees,Engineers,Engineering %,Patents\n" +
		"Acme,robotics,\"1,200\",600,50%,7\n"

	ds, err := ParseCSV(strings.NewReader(content), NewValidator())
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)

	r := ds.Records[0]
	assert.Equal(t, "Acme", r.ID)
	assert.Equal(t, "Acme", r.Name)
	assert.Equal(t, "robotics", r.Sector)
	assert.Equal(t, 1200, r.TotalEmployees)
	assert.Equal(t, 50.0, r.EngineeringPercentage)
	require.NotNil(t, r.PatentCount)
	assert.Equal(t, 7, *r.PatentCount)
	assert.True(t, ds.HasColumn(models.ColumnPatentCount))
}

// TestParseCSV_MissingRequiredColumn 测试缺少必需列
func TestParseCSV_MissingRequiredColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("id,sector,total_employees\nA,ai,10\n"), NewValidator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engineer_count")

	_, err = ParseCSV(strings.NewReader(""), NewValidator())
	require.Error(t, err)
}

// TestParseCSV_RejectsBadRows 测试格式错误与约束违反的行被拒绝
func TestParseCSV_RejectsBadRows(t *testing.T) {
	content := `id,sector,total_employees,engineer_count,engineering_percentage
ok,ai,10,5,50
bad-number,ai,ten,5,50
too-many-engineers,ai,10,11,100
,ai,10,5,50
bad-pct,ai,10,5,150

ok2,ai,20,5,25
`
	ds, err := ParseCSV(strings.NewReader(content), NewValidator())
	require.NoError(t, err)

	assert.Equal(t, []string{"ok", "ok2"}, []string{ds.Records[0].ID, ds.Records[1].ID})
	require.Len(t, ds.Rejected, 4)

	reasons := make(map[int]string)
	for _, re := range ds.Rejected {
		reasons[re.Row] = re.Reason
	}
	assert.Contains(t, reasons[2], "total_employees")
	assert.Contains(t, reasons[3], "exceeds")
	assert.Contains(t, reasons[4], "id is empty")
	assert.Contains(t, reasons[5], "outside")
}

// TestParseCSV_DecimalCounts 测试前导零按十进制解析，非整数计数被拒绝
func TestParseCSV_DecimalCounts(t *testing.T) {
	content := `id,sector,total_employees,engineer_count,engineering_percentage,patent_count
a,ai,010,5,50,007
b,ai,080,40,50,
c,ai,100,08,8,09
fraction,ai,10.5,5,50,
fraction-patents,ai,10,5,50,1.5
`
	ds, err := ParseCSV(strings.NewReader(content), NewValidator())
	require.NoError(t, err)

	require.Len(t, ds.Records, 3)
	a, b, c := ds.Records[0], ds.Records[1], ds.Records[2]
	assert.Equal(t, 10, a.TotalEmployees)
	assert.Equal(t, 5, a.EngineerCount)
	require.NotNil(t, a.PatentCount)
	assert.Equal(t, 7, *a.PatentCount)
	assert.Equal(t, 80, b.TotalEmployees)
	assert.Equal(t, 8, c.EngineerCount)
	require.NotNil(t, c.PatentCount)
	assert.Equal(t, 9, *c.PatentCount)

	require.Len(t, ds.Rejected, 2)
	assert.Equal(t, "fraction", ds.Rejected[0].ID)
	assert.Contains(t, ds.Rejected[0].Reason, "not an integer")
	assert.Equal(t, "fraction-patents", ds.Rejected[1].ID)
}

// TestCSVLoader_MissingFile 测试文件不存在时返回数据不可用
func TestCSVLoader_MissingFile(t *testing.T) {
	l := NewCSVLoader("/nonexistent/companies.csv", "", "")
	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = NewCSVLoader("", "", "").Load(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

// TestCSVLoader_URL 测试从远程URL加载
func TestCSVLoader_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companies.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(testutil.BaseCSV))
	}))
	defer server.Close()

	l := NewCSVLoader("", server.URL+"/companies.csv", "")
	ds, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Records, 2)
	assert.True(t, ds.SourceModTime.IsZero())

	_, err = l.ModTime()
	assert.ErrorIs(t, err, ErrModTimeUnsupported)

	_, err = NewCSVLoader("", server.URL+"/missing.csv", "").Load(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

// TestCSVLoader_GBK 测试GBK编码文件
func TestCSVLoader_GBK(t *testing.T) {
	content := "id,name,sector,total_employees,engineer_count,engineering_percentage\n" +
		"c1,深度科技,人工智能,40,30,75\n"

	encoded, err := simplifiedchinese.GBK.NewEncoder().String(content)
	require.NoError(t, err)

	path := testutil.WriteTempFile(t, "gbk.csv", encoded)
	ds, err := NewCSVLoader(path, "", "gbk").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "深度科技", ds.Records[0].Name)
	assert.Equal(t, "人工智能", ds.Records[0].Sector)

	_, err = NewCSVLoader(path, "", "no-such-charset").Load(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

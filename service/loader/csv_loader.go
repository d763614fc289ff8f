/*
 * @module service/loader/csv_loader
 * @description CSV数据集加载器，支持本地文件和远程URL，支持GBK等非UTF-8编码
 * @architecture 适配器模式 - 外部数据来源适配
 * @documentReference DESIGN.md
 * @stateFlow 读取来源 -> 编码转换 -> 表头映射 -> 逐行转换 -> 边界校验
 * @rules 表头大小写和空格不敏感，缺少必需列时整体失败，单行格式错误只拒绝该行
 * @dependencies encoding/csv, github.com/spf13/cast, golang.org/x/text
 * @refs service/loader/validator.go
 */

package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"techintel-service/service/models"
)

// headerAliases 常见表头写法到标准列名的映射
var headerAliases = map[string]models.Column{
	"company":                models.ColumnName,
	"company_name":           models.ColumnName,
	"company_id":             models.ColumnID,
	"industry":               models.ColumnSector,
	"employees":              models.ColumnTotalEmployees,
	"headcount":              models.ColumnTotalEmployees,
	"engineers":              models.ColumnEngineerCount,
	"engineering_pct":        models.ColumnEngineeringPercentage,
	"eng_percentage":         models.ColumnEngineeringPercentage,
	"engineering_percent":    models.ColumnEngineeringPercentage,
	"stage":                  models.ColumnFundingStage,
	"tech_score":             models.ColumnTechStrengthScore,
	"ip_score":               models.ColumnIPStrengthScore,
	"patents":                models.ColumnPatentCount,
	"location":               models.ColumnRegion,
	"patent_density":         models.ColumnPatentsPerEngineer,
	"technical_density":      models.ColumnEngineeringPercentage,
	"investment_intel_score": models.ColumnInvestmentScore,
}

// CSVLoader CSV数据集加载器
type CSVLoader struct {
	Path       string
	URL        string
	Charset    string
	HTTPClient *http.Client
	Validator  *Validator
}

// NewCSVLoader 创建CSV加载器，path与url二选一，path优先
func NewCSVLoader(path, url, charset string) *CSVLoader {
	return &CSVLoader{
		Path:       path,
		URL:        url,
		Charset:    charset,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Validator:  NewValidator(),
	}
}

// Source 实现Loader接口
func (l *CSVLoader) Source() string {
	if l.Path != "" {
		return "csv:" + l.Path
	}
	return "csv:" + l.URL
}

// ModTime 实现ModTimeSource接口，仅本地文件支持
func (l *CSVLoader) ModTime() (time.Time, error) {
	if l.Path == "" {
		return time.Time{}, ErrModTimeUnsupported
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Load 实现Loader接口
func (l *CSVLoader) Load(ctx context.Context) (*models.Dataset, error) {
	// 先取修改时间，读取期间的写入会让下一次检查发现变化
	modTime, modErr := l.ModTime()

	body, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, l.Source(), err)
	}
	defer body.Close()

	reader, err := decodeCharset(body, l.Charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	validator := l.Validator
	if validator == nil {
		validator = NewValidator()
	}
	ds, err := ParseCSV(reader, validator)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, l.Source(), err)
	}

	ds.Source = l.Source()
	if modErr == nil {
		ds.SourceModTime = modTime
	}
	return ds, nil
}

func (l *CSVLoader) open(ctx context.Context) (io.ReadCloser, error) {
	switch {
	case l.Path != "":
		return os.Open(l.Path)
	case l.URL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
		if err != nil {
			return nil, err
		}
		client := l.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp.Body, nil
	default:
		return nil, errors.New("either path or url must be provided")
	}
}

// decodeCharset 按字符集名称包装解码器，空值或utf-8时原样返回
func decodeCharset(r io.Reader, charset string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == "utf-8" || name == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// ParseCSV 解析CSV内容为数据集，表头决定数据集包含哪些列
func ParseCSV(r io.Reader, validator *Validator) (*models.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := mapHeader(header)
	columns := make(models.ColumnSet, len(index))
	for c := range index {
		columns[c] = struct{}{}
	}
	// 没有id列时使用name作为标识
	if !columns.Has(models.ColumnID) && columns.Has(models.ColumnName) {
		columns[models.ColumnID] = struct{}{}
	}
	for _, required := range models.RequiredColumns {
		if !columns.Has(required) {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var (
		records  []models.CompanyRecord
		rejected []models.RowError
		rowNo    int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNo++
		if err != nil {
			rejected = append(rejected, models.RowError{Row: rowNo, Reason: err.Error()})
			continue
		}
		if isBlank(row) {
			continue
		}

		record, err := parseRow(row, index)
		record.RowNo = rowNo
		if err != nil {
			rejected = append(rejected, models.RowError{Row: rowNo, ID: record.ID, Reason: err.Error()})
			continue
		}
		records = append(records, record)
	}

	kept, invalid := validator.Validate(records)
	rejected = append(rejected, invalid...)
	if len(rejected) > 0 {
		slog.Warn("CSV存在被拒绝的行", "rejected", len(rejected), "kept", len(kept))
	}

	return &models.Dataset{
		LoadedAt: time.Now(),
		Columns:  columns,
		Records:  kept,
		Rejected: rejected,
	}, nil
}

func mapHeader(header []string) map[models.Column]int {
	known := make(map[models.Column]struct{}, len(models.AllColumns))
	for _, c := range models.AllColumns {
		known[c] = struct{}{}
	}

	index := make(map[models.Column]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		col := models.Column(key)
		if alias, ok := headerAliases[key]; ok {
			col = alias
		}
		if _, ok := known[col]; !ok {
			continue
		}
		if _, dup := index[col]; dup {
			continue
		}
		index[col] = i
	}
	return index
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_", "%", "percentage").Replace(h)
	return h
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, index map[models.Column]int) (models.CompanyRecord, error) {
	cell := func(c models.Column) string {
		i, ok := index[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	r := models.CompanyRecord{
		ID:           cell(models.ColumnID),
		Name:         cell(models.ColumnName),
		Sector:       cell(models.ColumnSector),
		FundingStage: cell(models.ColumnFundingStage),
		Region:       cell(models.ColumnRegion),
	}
	if r.ID == "" {
		r.ID = r.Name
	}

	var err error
	if r.TotalEmployees, err = requiredInt(cell(models.ColumnTotalEmployees)); err != nil {
		return r, fmt.Errorf("total_employees: %w", err)
	}
	if r.EngineerCount, err = requiredInt(cell(models.ColumnEngineerCount)); err != nil {
		return r, fmt.Errorf("engineer_count: %w", err)
	}
	if r.EngineeringPercentage, err = requiredFloat(cell(models.ColumnEngineeringPercentage)); err != nil {
		return r, fmt.Errorf("engineering_percentage: %w", err)
	}

	optionalFloats := []struct {
		column models.Column
		dst    **float64
	}{
		{models.ColumnTechStrengthScore, &r.TechStrengthScore},
		{models.ColumnIPStrengthScore, &r.IPStrengthScore},
		{models.ColumnInvestmentScore, &r.InvestmentScore},
		{models.ColumnPatentsPerEngineer, &r.PatentsPerEngineer},
	}
	for _, f := range optionalFloats {
		if *f.dst, err = optionalFloat(cell(f.column)); err != nil {
			return r, fmt.Errorf("%s: %w", f.column, err)
		}
	}
	if r.PatentCount, err = optionalInt(cell(models.ColumnPatentCount)); err != nil {
		return r, fmt.Errorf("patent_count: %w", err)
	}

	return r, nil
}

// cleanNumber 去掉千分位逗号和百分号
func cleanNumber(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSuffix(s, "%")
}

// maxExactCount 超过此值的计数在float64中无法精确表示
const maxExactCount = 1 << 53

// parseCount 按十进制解析计数，前导零不作为进制前缀
func parseCount(s string) (int, error) {
	v, err := cast.ToFloat64E(cleanNumber(s))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || math.Abs(v) > maxExactCount {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(v), nil
}

func requiredInt(s string) (int, error) {
	if s == "" {
		return 0, errors.New("value is required")
	}
	return parseCount(s)
}

func requiredFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("value is required")
	}
	return cast.ToFloat64E(cleanNumber(s))
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseCount(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := cast.ToFloat64E(cleanNumber(s))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

/*
 * @module service/loader/db_loader
 * @description 数据库数据集加载器，从company_records表读取企业记录
 * @architecture 适配器模式 - 外部数据来源适配
 * @documentReference DESIGN.md
 * @stateFlow 探测表结构 -> 按行序读取 -> 边界校验 -> 构建快照
 * @rules 表中实际存在的列决定数据集列集合，读取顺序为row_no、id
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs service/init.go
 */

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"techintel-service/service/models"
)

// DBLoader 数据库数据集加载器
type DBLoader struct {
	db        *gorm.DB
	validator *Validator
}

// NewDBLoader 创建数据库加载器
func NewDBLoader(db *gorm.DB) *DBLoader {
	return &DBLoader{db: db, validator: NewValidator()}
}

// SetValidator 替换记录校验器
func (l *DBLoader) SetValidator(v *Validator) {
	l.validator = v
}

// OpenPostgres 按DSN打开PostgreSQL连接
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return db, nil
}

// Source 实现Loader接口
func (l *DBLoader) Source() string {
	return "db:" + models.CompanyRecord{}.TableName()
}

// Load 实现Loader接口
func (l *DBLoader) Load(ctx context.Context) (*models.Dataset, error) {
	columns, err := l.columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, l.Source(), err)
	}
	for _, required := range models.RequiredColumns {
		if !columns.Has(required) {
			return nil, fmt.Errorf("%w: %s: missing required column %q", ErrDataUnavailable, l.Source(), required)
		}
	}

	var records []models.CompanyRecord
	if err := l.db.WithContext(ctx).Order("row_no, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, l.Source(), err)
	}

	kept, rejected := l.validator.Validate(records)
	if len(rejected) > 0 {
		slog.Warn("数据库存在被拒绝的记录", "rejected", len(rejected), "kept", len(kept))
	}

	return &models.Dataset{
		Source:   l.Source(),
		LoadedAt: time.Now(),
		Columns:  columns,
		Records:  kept,
		Rejected: rejected,
	}, nil
}

// columns 读取表中实际存在的列
func (l *DBLoader) columns() (models.ColumnSet, error) {
	migrator := l.db.Migrator()
	if !migrator.HasTable(&models.CompanyRecord{}) {
		return nil, fmt.Errorf("table %s does not exist", models.CompanyRecord{}.TableName())
	}
	types, err := migrator.ColumnTypes(&models.CompanyRecord{})
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(types))
	for _, t := range types {
		present[t.Name()] = struct{}{}
	}

	set := make(models.ColumnSet, len(models.AllColumns))
	for _, c := range models.AllColumns {
		if _, ok := present[string(c)]; ok {
			set[c] = struct{}{}
		}
	}
	return set, nil
}

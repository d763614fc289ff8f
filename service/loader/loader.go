/*
 * @module service/loader/loader
 * @description 数据集加载器接口定义，负责从外部来源读取企业记录
 * @architecture 适配器模式 - 屏蔽CSV文件、远程URL和数据库等来源差异
 * @documentReference DESIGN.md
 * @stateFlow 打开来源 -> 解析记录 -> 边界校验 -> 构建快照
 * @rules 来源不可用时返回ErrDataUnavailable，调用方据此展示空状态而非崩溃
 * @dependencies context, techintel-service/service/models
 * @refs service/dataset/store.go
 */

package loader

import (
	"context"
	"errors"
	"time"

	"techintel-service/service/models"
)

var (
	// ErrDataUnavailable 数据来源不可用或内容无法解析
	ErrDataUnavailable = errors.New("dataset unavailable")
	// ErrModTimeUnsupported 来源不支持修改时间探测
	ErrModTimeUnsupported = errors.New("source has no modification time")
)

// Loader 数据集加载器
type Loader interface {
	// Load 读取完整数据集，返回的快照由调用方持有且不再修改
	Load(ctx context.Context) (*models.Dataset, error)
	// Source 返回来源描述，用于日志和状态展示
	Source() string
}

// ModTimeSource 支持修改时间探测的来源，定时检查据此决定是否重新加载
type ModTimeSource interface {
	ModTime() (time.Time, error)
}

// StaticLoader 返回固定记录的加载器，用于测试和内嵌数据
type StaticLoader struct {
	Name    string
	Columns []models.Column
	Records []models.CompanyRecord
	Err     error
}

// Load 实现Loader接口
func (l *StaticLoader) Load(ctx context.Context) (*models.Dataset, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	records := make([]models.CompanyRecord, len(l.Records))
	copy(records, l.Records)

	columns := l.Columns
	if len(columns) == 0 {
		columns = models.AllColumns
	}
	return &models.Dataset{
		Source:   l.Source(),
		LoadedAt: time.Now(),
		Columns:  models.NewColumnSet(columns...),
		Records:  records,
	}, nil
}

// Source 实现Loader接口
func (l *StaticLoader) Source() string {
	if l.Name == "" {
		return "static"
	}
	return l.Name
}

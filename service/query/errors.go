package query

import "errors"

var (
	// ErrInvalidCriteria 过滤条件不合法，例如区间上下界颠倒
	ErrInvalidCriteria = errors.New("invalid criteria")
	// ErrFieldNotFound 排序或统计字段不在记录结构中
	ErrFieldNotFound = errors.New("field not found")
	// ErrNotFound 按ID查找未命中
	ErrNotFound = errors.New("record not found")
)

package errors

import "errors"

// ErrValidation 字段级校验失败（长度、格式、枚举范围等）
var ErrValidation = errors.New("数据校验失败")

// ErrConflict 唯一约束冲突：记录已存在
var ErrConflict = errors.New("记录已存在")

package id

import (
	"github.com/google/uuid"
)

// New 生成新的 UUID 字符串
func New() string {
	return uuid.New().String()
}

// OrNew 候选值是合法 UUID 时规范化后返回，否则生成新的
func OrNew(candidate string) string {
	if u, err := uuid.Parse(candidate); err == nil {
		return u.String()
	}
	return New()
}

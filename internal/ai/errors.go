package ai

import "errors"

var (
	// ErrUpstream 远端模型调用失败
	ErrUpstream = errors.New("ai upstream error")
	// ErrNoChoices 补全接口没有返回任何候选
	ErrNoChoices = errors.New("no response choices")
)

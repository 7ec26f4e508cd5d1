package http

import (
	"context"

	"gptclone/internal/pkg/ctxutil"
)

// 错误码: 前三位与 HTTP 状态码一致
const (
	CodeInvalidBody   = 40001 // 请求体无法解析
	CodeEmptyMessage  = 40002 // message 为空
	CodeEmptyQuestion = 40003 // question 为空
	CodeInvalidID     = 40004 // 路径中的 id 不是正整数
	CodeNotFound      = 40401 // 对话不存在
	CodePanic         = 50000 // panic 恢复
	CodeInternal      = 50001 // 数据库或未知错误
	CodeUpstream      = 50201 // AI 服务调用失败
	CodeUnavailable   = 50301 // 依赖不可用
)

// ErrorResponse 错误响应（所有API共用）
// 错误消息放在 error 字段，兼容旧版前端
type ErrorResponse struct {
	Code      int    `json:"code"`                 // 错误码
	Message   string `json:"error"`                // 错误消息
	Detail    string `json:"detail,omitempty"`     // 错误详情（可选）
	RequestID string `json:"request_id,omitempty"` // 与响应头 X-Request-ID 一致
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string, detail ...string) *ErrorResponse {
	resp := &ErrorResponse{
		Code:    code,
		Message: message,
	}
	if len(detail) > 0 && detail[0] != "" {
		resp.Detail = detail[0]
	}
	return resp
}

// WithRequestID 附加请求 ID，ctx 中没有时保持不变
func (r *ErrorResponse) WithRequestID(ctx context.Context) *ErrorResponse {
	if rid, ok := ctxutil.GetRequestID(ctx); ok {
		r.RequestID = rid
	}
	return r
}

// StatusOf 错误码对应的 HTTP 状态码
func StatusOf(code int) int {
	return code / 100
}

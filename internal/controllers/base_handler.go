package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-playground/validator/v10"
)

// HandlerType 决定请求使用哪一档超时。
type HandlerType int

const (
	// HandlerTypeDefault 未区分类别。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 用于签发 URL、写库、调用对象存储等写操作。
	HandlerTypeCommand
	// HandlerTypeQuery 用于列表、详情、下载 URL 等只读操作。
	HandlerTypeQuery
)

// HandlerTimeouts 为各类 Handler 的超时；零值回退到 Default，Default 为零时回退到 5s。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

const (
	fallbackTimeout     = 5 * time.Second
	headerUserID        = "x-md-global-user-id"
	headerAuthorization = "Authorization"
)

// BaseHandler 提供超时、身份 Header 解析与 DTO 校验，由各 Handler 内嵌。
type BaseHandler struct {
	timeouts HandlerTimeouts
	validate *validator.Validate
}

// NewBaseHandler 构造 BaseHandler。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Default <= 0 {
		timeouts.Default = fallbackTimeout
	}
	if timeouts.Command <= 0 {
		timeouts.Command = timeouts.Default
	}
	if timeouts.Query <= 0 {
		timeouts.Query = timeouts.Default
	}
	return &BaseHandler{
		timeouts: timeouts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithTimeout 按 Handler 类型为 ctx 绑定超时。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackTimeout)
	}
	switch kind {
	case HandlerTypeCommand:
		return context.WithTimeout(ctx, h.timeouts.Command)
	case HandlerTypeQuery:
		return context.WithTimeout(ctx, h.timeouts.Query)
	default:
		return context.WithTimeout(ctx, h.timeouts.Default)
	}
}

// Validate 按 validate 标签校验 DTO，只报告第一个失败字段。
func (h *BaseHandler) Validate(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return services.ValidationError(services.ReasonUploadInvalid, "invalid field %s: failed on %s", fields[0].Field(), fields[0].Tag())
	}
	return services.ValidationError(services.ReasonUploadInvalid, "invalid request: %v", err)
}

// HandlerMetadata 为请求携带的身份信息，交给 Authenticator 解析。
type HandlerMetadata struct {
	UserID        string
	Authorization string
}

// IsZero 表示请求未携带任何身份信息。
func (m HandlerMetadata) IsZero() bool {
	return m.UserID == "" && m.Authorization == ""
}

// ExtractMetadata 读取网关透传的用户 Header 与 Authorization。
func (h *BaseHandler) ExtractMetadata(ctx context.Context) HandlerMetadata {
	tr, ok := transport.FromServerContext(ctx)
	if !ok {
		return HandlerMetadata{}
	}
	header := tr.RequestHeader()
	return HandlerMetadata{
		UserID:        strings.TrimSpace(header.Get(headerUserID)),
		Authorization: strings.TrimSpace(header.Get(headerAuthorization)),
	}
}

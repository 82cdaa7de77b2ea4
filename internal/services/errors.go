package services

import (
	"errors"
	"fmt"
)

// ErrorKind 是业务错误的封闭分类，Controller 层据此映射 HTTP 状态码。
type ErrorKind int

const (
	// KindInternal 为兜底分类。
	KindInternal ErrorKind = iota
	// KindValidation 表示输入缺失或格式错误。
	KindValidation
	// KindAuthentication 表示缺失或无效的调用方身份。
	KindAuthentication
	// KindForbidden 表示调用方无权访问目标资源。
	KindForbidden
	// KindNotFound 表示引用的实体不存在。
	KindNotFound
	// KindConflict 表示非法状态迁移或唯一约束冲突。
	KindConflict
	// KindDatabase 表示持久化层失败。
	KindDatabase
	// KindExternalService 表示对象存储或队列等外部依赖失败。
	KindExternalService
)

// String 返回分类名称，用于日志。
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDatabase:
		return "database"
	case KindExternalService:
		return "external_service"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// 错误原因常量，随响应体返回供客户端分支处理。
const (
	ReasonUploadInvalid       = "UPLOAD_INVALID"
	ReasonPartETagMissing     = "PART_ETAG_MISSING"
	ReasonPartsCountInvalid   = "PARTS_COUNT_INVALID"
	ReasonKeyNotOwned         = "OBJECT_KEY_NOT_OWNED"
	ReasonUnauthenticated     = "UNAUTHENTICATED"
	ReasonStorageUnavailable  = "STORAGE_UNAVAILABLE"
	ReasonVideoInvalid        = "VIDEO_INVALID"
	ReasonVideoNotFound       = "VIDEO_NOT_FOUND"
	ReasonVideoExists         = "VIDEO_ALREADY_EXISTS"
	ReasonStatusInvalid       = "VIDEO_STATUS_INVALID"
	ReasonIllegalTransition   = "VIDEO_STATUS_TRANSITION_ILLEGAL"
	ReasonVideoPersistFailed  = "VIDEO_PERSIST_FAILED"
	ReasonDispatchUnavailable = "DISPATCH_UNAVAILABLE"
	ReasonInternal            = "INTERNAL"
)

// Error 为携带分类的业务错误。
type Error struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Cause   error
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 暴露底层错误。
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, reason, message string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, Cause: cause}
}

// ValidationError 构造输入校验错误。
func ValidationError(reason, format string, args ...any) *Error {
	return newError(KindValidation, reason, fmt.Sprintf(format, args...), nil)
}

// AuthenticationError 构造身份缺失错误。
func AuthenticationError(message string) *Error {
	return newError(KindAuthentication, ReasonUnauthenticated, message, nil)
}

// ForbiddenError 构造越权访问错误。
func ForbiddenError(reason, message string) *Error {
	return newError(KindForbidden, reason, message, nil)
}

// NotFoundError 构造资源不存在错误。
func NotFoundError(reason, message string, cause error) *Error {
	return newError(KindNotFound, reason, message, cause)
}

// ConflictError 构造冲突错误。
func ConflictError(reason, message string, cause error) *Error {
	return newError(KindConflict, reason, message, cause)
}

// DatabaseError 包装持久化失败。
func DatabaseError(reason, message string, cause error) *Error {
	return newError(KindDatabase, reason, message, cause)
}

// ExternalServiceError 包装外部依赖失败。
func ExternalServiceError(reason, message string, cause error) *Error {
	return newError(KindExternalService, reason, message, cause)
}

// KindOf 返回错误链中第一个业务错误的分类，非业务错误视为 Internal。
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于指定分类。
func IsKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}

package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bionicotaku/lingo-services-upload/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Envelope 为成功响应的统一结构。
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody 为失败响应的统一结构。
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
}

// StatusFor 将业务错误分类映射为 HTTP 状态码。
func StatusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuthentication:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindDatabase:
		return http.StatusInternalServerError
	case services.KindExternalService:
		return http.StatusBadGateway
	case services.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// TranslateError 将服务层错误转换为 Kratos 错误，已是 Kratos 错误时原样返回。
func TranslateError(err error) *kerrors.Error {
	if err == nil {
		return nil
	}
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return kerrors.New(StatusFor(svcErr.Kind), svcErr.Reason, svcErr.Message).WithCause(err)
	}
	var ke *kerrors.Error
	if errors.As(err, &ke) {
		return ke
	}
	return kerrors.InternalServer(services.ReasonInternal, "internal server error").WithCause(err)
}

// ErrorEncoder 作为 Kratos HTTP Server 的错误编码器，输出 {message, error, reason}。
func ErrorEncoder(w http.ResponseWriter, _ *http.Request, err error) {
	se := TranslateError(err)
	code := int(se.Code)
	if code < 400 || code > 599 {
		code = http.StatusInternalServerError
	}
	body := ErrorBody{
		Message: se.Message,
		Error:   http.StatusText(code),
		Reason:  se.Reason,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

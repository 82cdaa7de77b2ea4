package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/bionicotaku/lingo-services-upload/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// UploadHandler 暴露上传相关的 HTTP 接口。
type UploadHandler struct {
	*BaseHandler
	auth *Authenticator
	svc  *services.UploadService
}

// NewUploadHandler 构造 UploadHandler。
func NewUploadHandler(base *BaseHandler, auth *Authenticator, svc *services.UploadService) *UploadHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &UploadHandler{BaseHandler: base, auth: auth, svc: svc}
}

// GetPresignedSingle 签发单次上传 URL。
func (h *UploadHandler) GetPresignedSingle(ctx khttp.Context) error {
	query := ctx.Query()
	return invoke(ctx, OperationPresignedSingle, http.StatusOK, "Presigned upload URL generated successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		req, err := dto.ParseSingleUploadQuery(query)
		if err != nil {
			return nil, err
		}
		if err := h.Validate(req); err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.StartSingleUpload(timeoutCtx, req.ToInput(userID))
	})
}

// GetPresignedMultipart 初始化分片上传并返回每个分片的 URL。
func (h *UploadHandler) GetPresignedMultipart(ctx khttp.Context) error {
	return invoke(ctx, OperationPresignedMultipart, http.StatusOK, "Multipart upload initiated successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		var req dto.MultipartUploadRequest
		if err := ctx.Bind(&req); err != nil {
			return nil, err
		}
		if err := h.Validate(req); err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.StartMultipartUpload(timeoutCtx, req.ToInput(userID))
	})
}

// CompleteMultipart 完成分片上传。
func (h *UploadHandler) CompleteMultipart(ctx khttp.Context) error {
	return invoke(ctx, OperationCompleteMultipart, http.StatusOK, "Multipart upload completed successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		var req dto.CompleteMultipartRequest
		if err := ctx.Bind(&req); err != nil {
			return nil, err
		}
		if err := h.Validate(req); err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		input := req.ToInput(userID)
		location, err := h.svc.CompleteUpload(timeoutCtx, input)
		if err != nil {
			return nil, err
		}
		return dto.CompleteMultipartResponse{FinalURL: location, Key: input.Key}, nil
	})
}

// AbortMultipart 放弃分片上传。
func (h *UploadHandler) AbortMultipart(ctx khttp.Context) error {
	return invoke(ctx, OperationAbortMultipart, http.StatusOK, "Multipart upload aborted", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		var req dto.AbortMultipartRequest
		if err := ctx.Bind(&req); err != nil {
			return nil, err
		}
		if err := h.Validate(req); err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return nil, h.svc.AbortUpload(timeoutCtx, req.ToInput(userID))
	})
}

// UploadPlan 根据文件大小给出上传策略。
func (h *UploadHandler) UploadPlan(ctx khttp.Context) error {
	query := ctx.Query()
	return invoke(ctx, OperationUploadPlan, http.StatusOK, "Upload plan generated successfully", func(c context.Context) (any, error) {
		if _, err := h.userFromContext(c, h.auth); err != nil {
			return nil, err
		}
		size, err := dto.ParseFileSize(query)
		if err != nil {
			return nil, err
		}
		return h.svc.Plan(size)
	})
}

// GetPresignedDownload 为调用方自己的对象签发下载 URL。
func (h *UploadHandler) GetPresignedDownload(ctx khttp.Context) error {
	key := strings.TrimSpace(ctx.Query().Get("key"))
	return invoke(ctx, OperationPresignedDownload, http.StatusOK, "Presigned download URL generated successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		url, err := h.svc.IssueDownload(timeoutCtx, userID, key)
		if err != nil {
			return nil, err
		}
		return dto.DownloadResponse{DownloadURL: url, Key: key}, nil
	})
}

package controllers

import (
	"context"
	"net/http"

	"github.com/bionicotaku/lingo-services-upload/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// VideoHandler 暴露视频记录与状态相关的 HTTP 接口。
type VideoHandler struct {
	*BaseHandler
	auth *Authenticator
	svc  *services.VideoService
}

// NewVideoHandler 构造 VideoHandler。
func NewVideoHandler(base *BaseHandler, auth *Authenticator, svc *services.VideoService) *VideoHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &VideoHandler{BaseHandler: base, auth: auth, svc: svc}
}

// CreateVideoRecord 持久化视频记录，返回 201。
func (h *VideoHandler) CreateVideoRecord(ctx khttp.Context) error {
	return invoke(ctx, OperationCreateVideoRecord, http.StatusCreated, "Video record created successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		var req dto.CreateVideoRecordRequest
		if err := ctx.Bind(&req); err != nil {
			return nil, err
		}
		if err := h.Validate(req); err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.CreateRecord(timeoutCtx, req.ToInput(userID))
	})
}

// UpdateVideoStatus 处理所有者发起的状态迁移。
func (h *VideoHandler) UpdateVideoStatus(ctx khttp.Context) error {
	return invoke(ctx, OperationUpdateVideoStatus, http.StatusOK, "Video status updated successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		var req dto.UpdateVideoStatusRequest
		if err := ctx.Bind(&req); err != nil {
			return nil, err
		}
		if err := h.Validate(req); err != nil {
			return nil, err
		}
		videoID, err := req.ParsedVideoID()
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.UpdateStatus(timeoutCtx, userID, videoID, req.Status)
	})
}

// FetchVideos 按状态列出调用方的视频，status 必填，"all" 表示不过滤。
func (h *VideoHandler) FetchVideos(ctx khttp.Context) error {
	status := ctx.Query().Get("status")
	return invoke(ctx, OperationFetchVideos, http.StatusOK, "Video fetched successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		if status == "" {
			return nil, services.ValidationError(services.ReasonStatusInvalid, "Missing required fields: status")
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.svc.FetchByStatus(timeoutCtx, userID, status)
	})
}

// GetVideo 返回单个视频详情。
func (h *VideoHandler) GetVideo(ctx khttp.Context) error {
	rawID := ctx.Vars().Get("id")
	return invoke(ctx, OperationGetVideo, http.StatusOK, "Video fetched successfully", func(c context.Context) (any, error) {
		userID, err := h.userFromContext(c, h.auth)
		if err != nil {
			return nil, err
		}
		videoID, err := dto.ParseVideoID(rawID)
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.svc.GetVideo(timeoutCtx, userID, videoID)
	})
}

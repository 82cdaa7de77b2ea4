package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/bionicotaku/lingo-services-upload/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// worker 回调请求体上限。
const maxWorkerBody = 64 << 10

// WorkerHandler 处理转码 worker 的签名回调。
type WorkerHandler struct {
	*BaseHandler
	verifier *WorkerVerifier
	svc      *services.VideoService
	log      *log.Helper
}

// NewWorkerHandler 构造 WorkerHandler。
func NewWorkerHandler(base *BaseHandler, verifier *WorkerVerifier, svc *services.VideoService, logger log.Logger) *WorkerHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &WorkerHandler{BaseHandler: base, verifier: verifier, svc: svc, log: log.NewHelper(logger)}
}

// UpdateVideoStatusForWorker 校验 HMAC 签名后按 input key 推进状态。
func (h *WorkerHandler) UpdateVideoStatusForWorker(ctx khttp.Context) error {
	req := ctx.Request()
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWorkerBody))
	if err != nil {
		return services.ValidationError(services.ReasonVideoInvalid, "read request body: %v", err)
	}
	timestamp := req.Header.Get(HeaderWorkerTimestamp)
	signature := req.Header.Get(HeaderWorkerSignature)

	return invoke(ctx, OperationWorkerStatus, http.StatusOK, "Video status updated successfully", func(c context.Context) (any, error) {
		if err := h.verifier.Verify(c, timestamp, signature, body); err != nil {
			h.log.WithContext(c).Warnf("reject worker callback: err=%v", err)
			return nil, err
		}
		var payload dto.WorkerStatusRequest
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, services.ValidationError(services.ReasonVideoInvalid, "invalid JSON body")
		}
		if err := h.Validate(payload); err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.UpdateStatusForWorker(timeoutCtx, payload.ToInput())
	})
}

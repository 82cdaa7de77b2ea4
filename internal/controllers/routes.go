package controllers

import (
	"context"
	"net/http"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// 路由与 operation 名称，operation 用于日志与中间件选择。
const (
	OperationPresignedSingle    = "/video/get-presigned-single"
	OperationPresignedMultipart = "/video/get-presigned-multipart"
	OperationCompleteMultipart  = "/video/complete-multipart"
	OperationAbortMultipart     = "/video/abort-multipart"
	OperationUploadPlan         = "/video/upload-plan"
	OperationPresignedDownload  = "/video/get-presigned-download"
	OperationCreateVideoRecord  = "/video/create-videorecord"
	OperationUpdateVideoStatus  = "/video/update-video-status"
	OperationWorkerStatus       = "/video/update-video-status-worker"
	OperationFetchVideos        = "/video"
	OperationGetVideo           = "/video/{id}"
)

// RegisterRoutes 将所有 Handler 挂载到 Kratos HTTP Server。
func RegisterRoutes(srv *khttp.Server, uploads *UploadHandler, videos *VideoHandler, worker *WorkerHandler) {
	r := srv.Route("/")
	r.GET(OperationPresignedSingle, uploads.GetPresignedSingle)
	r.POST(OperationPresignedMultipart, uploads.GetPresignedMultipart)
	r.POST(OperationCompleteMultipart, uploads.CompleteMultipart)
	r.POST(OperationAbortMultipart, uploads.AbortMultipart)
	r.GET(OperationUploadPlan, uploads.UploadPlan)
	r.GET(OperationPresignedDownload, uploads.GetPresignedDownload)
	r.POST(OperationCreateVideoRecord, videos.CreateVideoRecord)
	r.PATCH(OperationUpdateVideoStatus, videos.UpdateVideoStatus)
	r.PATCH(OperationWorkerStatus, worker.UpdateVideoStatusForWorker)
	r.GET(OperationFetchVideos, videos.FetchVideos)
	r.GET(OperationGetVideo, videos.GetVideo)
}

// invoke 经由 Server 中间件链执行 fn，并以 {message, data} 渲染成功结果。
func invoke(ctx khttp.Context, operation string, status int, message string, fn func(context.Context) (any, error)) error {
	khttp.SetOperation(ctx, operation)
	h := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		return fn(c)
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	if status == 0 {
		status = http.StatusOK
	}
	return ctx.Result(status, Envelope{Message: message, Data: out})
}

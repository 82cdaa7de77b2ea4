package status

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

type statusUpdater interface {
	UpdateStatusForWorker(ctx context.Context, input services.WorkerStatusInput) (*vo.Video, error)
}

// Handler 将 worker 回报写入视频状态机。
type Handler struct {
	updater statusUpdater
	log     *log.Helper
}

// NewHandler 构造 Handler。
func NewHandler(updater statusUpdater, logger log.Logger) *Handler {
	return &Handler{updater: updater, log: log.NewHelper(logger)}
}

// Handle 应用一条状态回报。
// 校验、不存在与非法迁移属于永久性错误，记录后确认消息；其余错误返回以便重投。
func (h *Handler) Handle(ctx context.Context, report *vo.WorkerStatusReport) error {
	if report == nil {
		return fmt.Errorf("status: nil report")
	}
	video, err := h.updater.UpdateStatusForWorker(ctx, services.WorkerStatusInput{
		InputKey:     report.InputKey,
		Status:       report.Status,
		TaskID:       report.TaskID,
		OutputKey:    report.OutputKey,
		ErrorMessage: report.ErrorMessage,
	})
	if err != nil {
		switch services.KindOf(err) {
		case services.KindValidation, services.KindNotFound, services.KindConflict:
			h.log.WithContext(ctx).Warnf("status: drop report input_key=%s status=%s err=%v", report.InputKey, report.Status, err)
			return nil
		}
		return fmt.Errorf("status: apply report: %w", err)
	}
	h.log.WithContext(ctx).Infof("status: applied input_key=%s video_id=%s status=%s", report.InputKey, video.VideoID, video.Status)
	return nil
}

// Package status 消费转码 worker 通过 Pub/Sub 回报的状态事件。
package status

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
)

type reportDecoder struct{}

func newReportDecoder() *reportDecoder {
	return &reportDecoder{}
}

// Decode 将消息体解析为 WorkerStatusReport，videoId 与 status 必填。
func (d *reportDecoder) Decode(data []byte) (*vo.WorkerStatusReport, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("status: empty payload")
	}
	var report vo.WorkerStatusReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("status: decode payload: %w", err)
	}
	report.InputKey = strings.TrimSpace(report.InputKey)
	report.Status = strings.TrimSpace(report.Status)
	if report.InputKey == "" || report.Status == "" {
		return nil, fmt.Errorf("status: missing videoId or status")
	}
	return &report, nil
}

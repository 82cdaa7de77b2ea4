package services

import "github.com/bionicotaku/lingo-services-upload/internal/models/po"

// Metrics 记录业务指标，由 infrastructure/metrics 基于 Prometheus 实现。
type Metrics interface {
	PresignedURL(kind string)
	MultipartCompleted(result string)
	StatusTransition(from, to po.VideoStatus, source string)
	ThumbnailResult(result string)
	TranscodeDispatched(result string)
}

// NopMetrics 丢弃所有指标。
type NopMetrics struct{}

func (NopMetrics) PresignedURL(string) {}
func (NopMetrics) MultipartCompleted(string) {}
func (NopMetrics) StatusTransition(po.VideoStatus, po.VideoStatus, string) {}
func (NopMetrics) ThumbnailResult(string) {}
func (NopMetrics) TranscodeDispatched(string) {}

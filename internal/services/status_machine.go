package services

import (
	"fmt"

	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
)

// TransitionSource 标识状态迁移的发起方，不同发起方适用不同的迁移规则。
type TransitionSource int

const (
	// SourceOwner 为视频所有者通过 API 发起的迁移，严格按迁移图执行。
	SourceOwner TransitionSource = iota
	// SourceWorker 为转码 worker 回报，允许沿生命周期向前跳跃。
	SourceWorker
	// SourceRetry 为失败重试时的回队迁移。
	SourceRetry
)

func (s TransitionSource) String() string {
	switch s {
	case SourceOwner:
		return "owner"
	case SourceWorker:
		return "worker"
	case SourceRetry:
		return "retry"
	}
	return "unknown"
}

// ownerTransitions 为所有者可执行的迁移边。
var ownerTransitions = map[po.VideoStatus][]po.VideoStatus{
	po.VideoStatusNotUploaded: {po.VideoStatusUploaded, po.VideoStatusFailed},
	po.VideoStatusUploaded:    {po.VideoStatusInQueue, po.VideoStatusProcessing, po.VideoStatusFailed},
	po.VideoStatusInQueue:     {po.VideoStatusInLambda, po.VideoStatusProcessing, po.VideoStatusFailed},
	po.VideoStatusInLambda:    {po.VideoStatusProcessing, po.VideoStatusFailed},
	po.VideoStatusProcessing:  {po.VideoStatusCompleted, po.VideoStatusFailed},
}

// statusRank 为生命周期中的顺序，终态同级。
var statusRank = map[po.VideoStatus]int{
	po.VideoStatusNotUploaded: 0,
	po.VideoStatusUploaded:    1,
	po.VideoStatusInQueue:     2,
	po.VideoStatusInLambda:    3,
	po.VideoStatusProcessing:  4,
	po.VideoStatusCompleted:   5,
	po.VideoStatusFailed:      5,
}

// StatusMachine 定义视频状态的合法迁移图。零值可用。
type StatusMachine struct{}

// NewStatusMachine 构造状态机。
func NewStatusMachine() *StatusMachine {
	return &StatusMachine{}
}

// Allowed 判断 from→to 对指定发起方是否合法。同状态视为合法（幂等）。
func (m *StatusMachine) Allowed(from, to po.VideoStatus, source TransitionSource) bool {
	if _, ok := statusRank[to]; !ok {
		return false
	}
	if _, ok := statusRank[from]; !ok {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	switch source {
	case SourceOwner:
		for _, next := range ownerTransitions[from] {
			if next == to {
				return true
			}
		}
		return false
	case SourceWorker:
		return statusRank[to] > statusRank[from]
	case SourceRetry:
		return to == po.VideoStatusInQueue && statusRank[from] >= statusRank[po.VideoStatusUploaded]
	}
	return false
}

// Check 校验迁移，非法时返回 Conflict 错误。
func (m *StatusMachine) Check(from, to po.VideoStatus, source TransitionSource) error {
	if m.Allowed(from, to, source) {
		return nil
	}
	return ConflictError(ReasonIllegalTransition,
		fmt.Sprintf("illegal status transition %s -> %s (%s)", from, to, source), nil)
}

// Targets 返回指定发起方从 from 出发可到达的状态（不含自身）。
func (m *StatusMachine) Targets(from po.VideoStatus, source TransitionSource) []po.VideoStatus {
	var out []po.VideoStatus
	for _, to := range po.AllVideoStatuses {
		if to != from && m.Allowed(from, to, source) {
			out = append(out, to)
		}
	}
	return out
}

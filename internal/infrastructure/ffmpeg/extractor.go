// Package ffmpeg 通过 ffmpeg 命令行截取视频帧。
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
)

// 错误输出在日志中保留的最大长度。
const maxOutputLog = 2048

// Runner 执行外部命令，便于测试替换。
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandRunner 基于 exec.CommandContext 执行命令。
type CommandRunner struct{}

// Run 执行命令并返回合并后的输出。
func (CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Extractor 实现 services.FrameExtractor。
type Extractor struct {
	binary string
	runner Runner
	log    *log.Helper
}

// NewExtractor 构造 Extractor；runner 为 nil 时使用 CommandRunner。
func NewExtractor(binary string, runner Runner, logger log.Logger) *Extractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	if runner == nil {
		runner = CommandRunner{}
	}
	return &Extractor{
		binary: binary,
		runner: runner,
		log:    log.NewHelper(logger),
	}
}

// ProvideExtractor 供 Wire 注入使用。
func ProvideExtractor(cfg configloader.ThumbnailConfig, logger log.Logger) *Extractor {
	return NewExtractor(cfg.FFmpegPath, CommandRunner{}, logger)
}

// Args 返回截取首帧并按宽度等比缩放的参数。
func Args(sourceURL, outputPath string, width int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", sourceURL,
		"-frames:v", "1",
		"-vf", "scale=" + strconv.Itoa(width) + ":-2",
		"-q:v", "2",
		outputPath,
	}
}

// ExtractFrame 将 sourceURL 的首帧写入 outputPath。
func (e *Extractor) ExtractFrame(ctx context.Context, sourceURL, outputPath string, width int) error {
	if sourceURL == "" || outputPath == "" {
		return errors.New("ffmpeg: source and output are required")
	}
	if width <= 0 {
		return fmt.Errorf("ffmpeg: invalid width %d", width)
	}
	out, err := e.runner.Run(ctx, e.binary, Args(sourceURL, outputPath, width)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		msg := strings.TrimSpace(string(out))
		if len(msg) > maxOutputLog {
			msg = msg[:maxOutputLog]
		}
		e.log.WithContext(ctx).Warnf("ffmpeg failed: output=%s err=%v", msg, err)
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}

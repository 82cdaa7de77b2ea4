// Package sqsqueue 将转码任务投递到 SQS 队列。
package sqsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-kratos/kratos/v2/log"
)

// SendMessageAPI 为 SQS 客户端的最小子集。
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher 实现 services.TranscodeDispatcher。
type Publisher struct {
	client   SendMessageAPI
	queueURL string
	log      *log.Helper
}

// NewPublisher 构造 Publisher。
func NewPublisher(client SendMessageAPI, queueURL string, logger log.Logger) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("sqsqueue: client is required")
	}
	if queueURL == "" {
		return nil, errors.New("sqsqueue: queue url is required")
	}
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		log:      log.NewHelper(logger),
	}, nil
}

// ProvidePublisher 供 Wire 注入使用；转码未启用时返回 nil。
func ProvidePublisher(ctx context.Context, cfg configloader.TranscodeConfig, logger log.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewPublisher(client, cfg.QueueURL, logger)
}

// Dispatch 发送转码任务，返回 SQS MessageId。
func (p *Publisher) Dispatch(ctx context.Context, job vo.TranscodeJob) (string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode transcode job: %w", err)
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"videoId": {DataType: aws.String("String"), StringValue: aws.String(job.VideoID.String())},
			"attempt": {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(int(job.Attempt)))},
		},
	})
	if err != nil {
		p.log.WithContext(ctx).Errorf("send transcode job failed: video_id=%s err=%v", job.VideoID, err)
		return "", fmt.Errorf("sqs send message: %w", err)
	}
	msgID := aws.ToString(out.MessageId)
	p.log.WithContext(ctx).Infof("transcode job queued: video_id=%s message_id=%s attempt=%d", job.VideoID, msgID, job.Attempt)
	return msgID, nil
}

package configloader

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Duration 支持在 YAML 中以 "360s"、"2m" 形式书写时长；纯数字按秒解析。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler（Kratos config Scan 经由 JSON 解码）。
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = 0
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case string:
		if strings.TrimSpace(v) == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalJSON 输出 Go 风格的时长字符串。
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std 返回标准库 time.Duration。
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RuntimeConfig 为服务运行期配置的强类型视图。
type RuntimeConfig struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Storage      StorageConfig      `json:"storage"`
	Upload       UploadConfig       `json:"upload"`
	Thumbnail    ThumbnailConfig    `json:"thumbnail"`
	Transcode    TranscodeConfig    `json:"transcode"`
	Redis        RedisConfig        `json:"redis"`
	Auth         AuthConfig         `json:"auth"`
	WorkerStatus WorkerStatusConfig `json:"worker_status"`
	Metrics      MetricsConfig      `json:"metrics"`
}

// ServerConfig 描述 HTTP 监听与 handler 超时。
type ServerConfig struct {
	HTTP     HTTPConfig    `json:"http"`
	Handlers HandlerConfig `json:"handlers"`
}

// HTTPConfig 描述 HTTP 监听地址。
type HTTPConfig struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr" validate:"required"`
	Timeout Duration `json:"timeout"`
}

// HandlerConfig 描述各类 handler 的超时。
type HandlerConfig struct {
	DefaultTimeout Duration `json:"default_timeout"`
	CommandTimeout Duration `json:"command_timeout"`
	QueryTimeout   Duration `json:"query_timeout"`
}

// DatabaseConfig 描述 PostgreSQL 连接池参数。
type DatabaseConfig struct {
	DSN                      string            `json:"dsn" validate:"required"`
	MaxOpenConns             int32             `json:"max_open_conns" validate:"gte=0"`
	MinOpenConns             int32             `json:"min_open_conns" validate:"gte=0"`
	MaxConnLifetime          Duration          `json:"max_conn_lifetime"`
	MaxConnIdleTime          Duration          `json:"max_conn_idle_time"`
	HealthCheckPeriod        Duration          `json:"health_check_period"`
	Schema                   string            `json:"schema"`
	EnablePreparedStatements bool              `json:"enable_prepared_statements"`
	Transaction              TransactionConfig `json:"transaction"`
}

// TransactionConfig 对应 txmanager.Config。
type TransactionConfig struct {
	DefaultIsolation string   `json:"default_isolation"`
	DefaultTimeout   Duration `json:"default_timeout"`
	LockTimeout      Duration `json:"lock_timeout"`
	MaxRetries       int      `json:"max_retries" validate:"gte=0"`
	MetricsEnabled   *bool    `json:"metrics_enabled"`
}

// 对象存储驱动。
const (
	StorageDriverS3    = "s3"
	StorageDriverMinIO = "minio"
	StorageDriverGCS   = "gcs"
)

// StorageConfig 描述对象存储驱动与签名 URL 有效期。
type StorageConfig struct {
	Driver          string      `json:"driver" validate:"oneof=s3 minio gcs"`
	Bucket          string      `json:"bucket" validate:"required"`
	Region          string      `json:"region"`
	UploadTTL       Duration    `json:"upload_ttl"`
	DownloadTTL     Duration    `json:"download_ttl"`
	PartTTL         Duration    `json:"part_ttl"`
	PartConcurrency int         `json:"part_concurrency" validate:"gte=0"`
	S3              S3Config    `json:"s3"`
	MinIO           MinIOConfig `json:"minio"`
	GCS             GCSConfig   `json:"gcs"`
}

// S3Config 描述 AWS S3 访问参数；凭证为空时使用默认凭证链。
type S3Config struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Endpoint        string `json:"endpoint"`
	UsePathStyle    bool   `json:"use_path_style"`
}

// MinIOConfig 描述 S3 兼容存储（本地开发）的访问参数。
type MinIOConfig struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
}

// GCSConfig 描述 GCS 签名所需的服务账号。
type GCSConfig struct {
	SignerEmail           string `json:"signer_email"`
	ServiceAccountKeyPath string `json:"service_account_key_path"`
}

// UploadConfig 描述分片与上传大小约束。
type UploadConfig struct {
	MinPartSize        int64 `json:"min_part_size" validate:"gte=0"`
	MaxPartSize        int64 `json:"max_part_size" validate:"gte=0"`
	PreferredPartSize  int64 `json:"preferred_part_size" validate:"gte=0"`
	MaxParts           int32 `json:"max_parts" validate:"gte=0,lte=10000"`
	SingleUploadLimit  int64 `json:"single_upload_limit" validate:"gte=0"`
	MultipartThreshold int64 `json:"multipart_threshold" validate:"gte=0"`
	DefaultMaxRetries  int32 `json:"default_max_retries" validate:"gte=0"`
}

// 缩略图派发模式。
const (
	ThumbnailModeInline   = "inline"
	ThumbnailModeAsync    = "async"
	ThumbnailModeRedis    = "redis"
	ThumbnailModeDisabled = "disabled"
)

// ThumbnailConfig 描述缩略图生成与派发。
type ThumbnailConfig struct {
	Mode        string   `json:"mode" validate:"oneof=inline async redis disabled"`
	Width       int      `json:"width" validate:"gte=0"`
	Timeout     Duration `json:"timeout"`
	SourceTTL   Duration `json:"source_ttl"`
	ScratchDir  string   `json:"scratch_dir"`
	FFmpegPath  string   `json:"ffmpeg_path"`
	Workers     int      `json:"workers" validate:"gte=0"`
	QueueSize   int      `json:"queue_size" validate:"gte=0"`
	QueueKey    string   `json:"queue_key"`
	MaxAttempts int      `json:"max_attempts" validate:"gte=0"`
}

// TranscodeConfig 描述 SQS 转码任务投递。
type TranscodeConfig struct {
	Enabled  bool   `json:"enabled"`
	QueueURL string `json:"queue_url" validate:"required_if=Enabled true"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
}

// RedisConfig 描述 Redis 连接。
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db" validate:"gte=0"`
}

// AuthConfig 描述用户与 worker 的认证方式。
type AuthConfig struct {
	JWTSecret         string   `json:"jwt_secret"`
	JWTIssuer         string   `json:"jwt_issuer"`
	AllowHeaderUserID bool     `json:"allow_header_user_id"`
	WorkerSecret      string   `json:"worker_secret"`
	WorkerClockSkew   Duration `json:"worker_clock_skew"`
}

// WorkerStatusConfig 描述 worker 状态事件的 Pub/Sub 订阅。
type WorkerStatusConfig struct {
	ProjectID        string `json:"project_id"`
	TopicID          string `json:"topic_id"`
	SubscriptionID   string `json:"subscription_id"`
	EmulatorEndpoint string `json:"emulator_endpoint"`
	LoggingEnabled   *bool  `json:"logging_enabled"`
	MetricsEnabled   *bool  `json:"metrics_enabled"`
}

// MetricsConfig 描述 Prometheus 暴露方式。
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

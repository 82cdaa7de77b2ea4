// Package configloader 负责加载 YAML 配置、应用环境变量覆盖与默认值，并输出强类型的 RuntimeConfig。
package configloader

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bionicotaku/lingo-utils/gclog"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	envConfPath        = "CONF_PATH"
	envServiceName     = "SERVICE_NAME"
	envServiceVersion  = "SERVICE_VERSION"
	envAppEnv          = "APP_ENV"
	envDatabaseURL     = "DATABASE_URL"
	envPort            = "PORT"
	envRedisAddr       = "REDIS_ADDR"
	envStorageDriver   = "STORAGE_DRIVER"
	envBucketName      = "S3_BUCKET_NAME"
	envAWSRegion       = "S3_AWS_REGION"
	envAWSAccessKey    = "S3_AWS_ACCESS_KEY_ID"
	envAWSSecretKey    = "S3_AWS_SECRET_ACCESS_KEY"
	envWorkerSecret    = "WORKER_SHARED_SECRET"
	envJWTSecret       = "AUTH_JWT_SECRET"
	envTranscodeQueue  = "TRANSCODE_QUEUE_URL"
	envPubSubProjectID = "GOOGLE_CLOUD_PROJECT"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含加载配置所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
}

// ServiceMetadata 保存服务标识信息，供日志组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Bundle 聚合运行期配置与服务元信息，供 Wire 注入使用。
type Bundle struct {
	Runtime RuntimeConfig
	Service ServiceMetadata
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// LoggerConfig 将服务元信息转换为 gclog.Config。
func (m ServiceMetadata) LoggerConfig() gclog.Config {
	labels := map[string]string{}
	if m.InstanceID != "" {
		labels["service.id"] = m.InstanceID
	}
	return gclog.Config{
		Service:              m.Name,
		Version:              m.Version,
		Environment:          m.Environment,
		InstanceID:           m.InstanceID,
		StaticLabels:         labels,
		EnableSourceLocation: true,
	}
}

// Build 解析配置路径、加载 .env、读取配置并推导服务元信息。
func Build(params Params) (*Bundle, error) {
	runtime, err := Load(params)
	if err != nil {
		return nil, err
	}
	return &Bundle{Runtime: runtime, Service: buildServiceMetadata()}, nil
}

// Load 加载并校验 RuntimeConfig。
//
// 错误阶段：
//   - "load": 文件读取失败
//   - "scan": YAML 解析失败或类型不匹配
//   - "validate": 必填字段缺失或约束不满足
func Load(params Params) (RuntimeConfig, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return RuntimeConfig{}, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	var rc RuntimeConfig
	if err := c.Scan(&rc); err != nil {
		return RuntimeConfig{}, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	applyEnvOverrides(&rc)
	fillDefaults(&rc)

	if err := validate(rc); err != nil {
		return RuntimeConfig{}, BuildError{Stage: "validate", Path: confPath, Err: err}
	}
	return rc, nil
}

// ResolveConfPath 应用回退规则确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfPath); env != "" {
		return env
	}
	return defaultConfPath
}

// applyEnvOverrides 应用环境变量覆盖配置文件中的字段，环境变量为空时保留原值。
func applyEnvOverrides(rc *RuntimeConfig) {
	overrideString(&rc.Database.DSN, envDatabaseURL)
	if port := os.Getenv(envPort); port != "" {
		rc.Server.HTTP.Addr = replacePort(rc.Server.HTTP.Addr, port)
	}
	overrideString(&rc.Redis.Addr, envRedisAddr)
	if driver := os.Getenv(envStorageDriver); driver != "" {
		rc.Storage.Driver = strings.ToLower(driver)
	}
	overrideString(&rc.Storage.Bucket, envBucketName)
	overrideString(&rc.Storage.Region, envAWSRegion)
	overrideString(&rc.Storage.S3.AccessKeyID, envAWSAccessKey)
	overrideString(&rc.Storage.S3.SecretAccessKey, envAWSSecretKey)
	overrideString(&rc.Auth.WorkerSecret, envWorkerSecret)
	overrideString(&rc.Auth.JWTSecret, envJWTSecret)
	if queue := os.Getenv(envTranscodeQueue); queue != "" {
		rc.Transcode.QueueURL = queue
		rc.Transcode.Enabled = true
	}
	overrideString(&rc.WorkerStatus.ProjectID, envPubSubProjectID)
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate 执行结构体标签校验与跨字段约束。
func validate(rc RuntimeConfig) error {
	if err := structValidator.Struct(rc); err != nil {
		return err
	}
	if rc.Thumbnail.Mode == ThumbnailModeRedis && rc.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when thumbnail.mode is %q", ThumbnailModeRedis)
	}
	if rc.Upload.MinPartSize > rc.Upload.MaxPartSize {
		return fmt.Errorf("upload.min_part_size %d exceeds upload.max_part_size %d", rc.Upload.MinPartSize, rc.Upload.MaxPartSize)
	}
	if rc.Storage.Driver == StorageDriverMinIO && rc.Storage.MinIO.Endpoint == "" {
		return fmt.Errorf("storage.minio.endpoint is required when storage.driver is %q", StorageDriverMinIO)
	}
	return nil
}

// buildServiceMetadata 从环境变量推导服务元信息，缺失时使用默认值。
func buildServiceMetadata() ServiceMetadata {
	host, _ := os.Hostname()
	return ServiceMetadata{
		Name:        firstNonEmpty(os.Getenv(envServiceName), defaultServiceName),
		Version:     firstNonEmpty(os.Getenv(envServiceVersion), defaultServiceVersion),
		Environment: firstNonEmpty(os.Getenv(envAppEnv), defaultEnvironment),
		InstanceID:  firstNonEmpty(host, "unknown"),
	}
}

// loadEnvFiles best-effort 加载配置相关的 .env 文件，失败时忽略以保持幂等。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

// envFileCandidates 按 confPath 目录、当前工作目录的顺序查找 .env.local 与 .env。
// godotenv 不会覆盖已设置的变量，因此越靠前优先级越高。
func envFileCandidates(confPath string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, dir := range orderedDirs(confPath) {
		for _, name := range envFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			files = append(files, candidate)
			seen[candidate] = struct{}{}
		}
	}
	return files
}

func orderedDirs(confPath string) []string {
	var dirs []string
	appendUnique := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		for _, existing := range dirs {
			if existing == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if confPath != "" {
		if info, err := os.Stat(confPath); err == nil {
			if info.IsDir() {
				appendUnique(confPath)
			} else {
				appendUnique(filepath.Dir(confPath))
			}
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		appendUnique(cwd)
	}
	return dirs
}

// replacePort 替换地址中的端口部分，保留 host。
//   - "0.0.0.0:8080" -> "0.0.0.0:9000"
//   - "[::1]:8080" -> "[::1]:9000"
func replacePort(addr, newPort string) string {
	if _, err := strconv.Atoi(newPort); err != nil {
		return addr
	}
	if addr == "" {
		return "0.0.0.0:" + newPort
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "0.0.0.0:" + newPort
	}
	return net.JoinHostPort(host, newPort)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

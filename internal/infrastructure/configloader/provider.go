package configloader

import (
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/bionicotaku/lingo-utils/gclog"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

// ProviderSet exposes configuration-derived dependencies for Wire graphs.
var ProviderSet = wire.NewSet(
	Build,
	ProvideRuntimeConfig,
	ProvideServiceMetadata,
	ProvideLoggerConfig,
	ProvideServerConfig,
	ProvideDatabaseConfig,
	ProvideTxManagerConfig,
	ProvideStorageConfig,
	ProvideThumbnailConfig,
	ProvideIssuerConfig,
	ProvideUploadLimits,
	ProvideRedisConfig,
	ProvideTranscodeConfig,
	ProvideAuthConfig,
	ProvideWorkerStatusConfig,
	ProvideMetricsConfig,
)

// ProvideRuntimeConfig 返回完整运行期配置。
func ProvideRuntimeConfig(b *Bundle) RuntimeConfig {
	if b == nil {
		return RuntimeConfig{}
	}
	return b.Runtime
}

// ProvideServiceMetadata returns the resolved ServiceMetadata.
func ProvideServiceMetadata(b *Bundle) ServiceMetadata {
	if b == nil {
		return ServiceMetadata{}
	}
	return b.Service
}

// ProvideLoggerConfig 构造 gclog 配置。
func ProvideLoggerConfig(meta ServiceMetadata) gclog.Config {
	return meta.LoggerConfig()
}

// ProvideServerConfig 返回 server 配置段。
func ProvideServerConfig(rc RuntimeConfig) ServerConfig { return rc.Server }

// ProvideDatabaseConfig 返回 database 配置段。
func ProvideDatabaseConfig(rc RuntimeConfig) DatabaseConfig { return rc.Database }

// ProvideStorageConfig 返回 storage 配置段。
func ProvideStorageConfig(rc RuntimeConfig) StorageConfig { return rc.Storage }

// ProvideThumbnailConfig 返回 thumbnail 配置段。
func ProvideThumbnailConfig(rc RuntimeConfig) ThumbnailConfig { return rc.Thumbnail }

// ProvideRedisConfig 返回 redis 配置段。
func ProvideRedisConfig(rc RuntimeConfig) RedisConfig { return rc.Redis }

// ProvideTranscodeConfig 返回 transcode 配置段。
func ProvideTranscodeConfig(rc RuntimeConfig) TranscodeConfig { return rc.Transcode }

// ProvideAuthConfig 返回 auth 配置段。
func ProvideAuthConfig(rc RuntimeConfig) AuthConfig { return rc.Auth }

// ProvideWorkerStatusConfig 返回 worker_status 配置段。
func ProvideWorkerStatusConfig(rc RuntimeConfig) WorkerStatusConfig { return rc.WorkerStatus }

// ProvideMetricsConfig 返回 metrics 配置段。
func ProvideMetricsConfig(rc RuntimeConfig) MetricsConfig { return rc.Metrics }

// ProvideTxManagerConfig 将事务配置转换为 txmanager.Config。
func ProvideTxManagerConfig(db DatabaseConfig) txmanager.Config {
	tx := db.Transaction
	return txmanager.Config{
		DefaultIsolation: tx.DefaultIsolation,
		DefaultTimeout:   tx.DefaultTimeout.Std(),
		LockTimeout:      tx.LockTimeout.Std(),
		MaxRetries:       tx.MaxRetries,
		MetricsEnabled:   tx.MetricsEnabled,
	}
}

// ProvideIssuerConfig 将 storage 配置转换为签名参数。
func ProvideIssuerConfig(st StorageConfig) services.IssuerConfig {
	return services.IssuerConfig{
		UploadTTL:       st.UploadTTL.Std(),
		DownloadTTL:     st.DownloadTTL.Std(),
		PartTTL:         st.PartTTL.Std(),
		PartConcurrency: st.PartConcurrency,
	}
}

// ProvideUploadLimits 将 upload 配置转换为上传约束。
func ProvideUploadLimits(rc RuntimeConfig) services.UploadLimits {
	up := rc.Upload
	return services.UploadLimits{
		MinPartSize:        up.MinPartSize,
		MaxPartSize:        up.MaxPartSize,
		PreferredPartSize:  up.PreferredPartSize,
		MaxParts:           up.MaxParts,
		SingleUploadLimit:  up.SingleUploadLimit,
		MultipartThreshold: up.MultipartThreshold,
	}
}

// ServiceThumbnailConfig 将 thumbnail 配置转换为缩略图服务参数。
func (c ThumbnailConfig) ServiceThumbnailConfig() services.ThumbnailConfig {
	return services.ThumbnailConfig{
		Width:      c.Width,
		Timeout:    c.Timeout.Std(),
		SourceTTL:  c.SourceTTL.Std(),
		ScratchDir: c.ScratchDir,
	}
}

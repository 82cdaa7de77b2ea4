package configloader

import "time"

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// defaultEnvironment is used when APP_ENV is missing.
	defaultEnvironment    = "development"
	defaultServiceName    = "lingo-services-upload"
	defaultServiceVersion = "dev"
)

// 未配置时采用的默认值。
const (
	defaultHTTPAddr          = "0.0.0.0:8080"
	defaultHTTPTimeout       = 30 * time.Second
	defaultHandlerTimeout    = 5 * time.Second
	defaultCommandTimeout    = 10 * time.Second
	defaultQueryTimeout      = 5 * time.Second
	defaultRegion            = "us-east-1"
	defaultUploadTTL         = 360 * time.Second
	defaultDownloadTTL       = 3000 * time.Second
	defaultPartTTL           = time.Hour
	defaultThumbnailWidth    = 1080
	defaultThumbnailTimeout  = 2 * time.Minute
	defaultThumbnailReadTTL  = 300 * time.Second
	defaultThumbnailWorkers  = 4
	defaultThumbnailQueue    = 64
	defaultThumbnailQueueKey = "upload:thumbnail:jobs"
	defaultThumbnailAttempts = 3
	defaultMinPartSize       = 5 << 20
	defaultMaxPartSize       = 5 << 30
	defaultPreferredPartSize = 10 << 20
	defaultMaxParts          = 10000
	defaultSingleUploadLimit = 5 << 30
	defaultMultipartThresh   = 100 << 20
	defaultMaxRetries        = 5
	defaultWorkerClockSkew   = 5 * time.Minute
	defaultMetricsPath       = "/metrics"
)

// fillDefaults 为缺失字段填充默认值。
func fillDefaults(rc *RuntimeConfig) {
	srv := &rc.Server
	if srv.HTTP.Network == "" {
		srv.HTTP.Network = "tcp"
	}
	if srv.HTTP.Addr == "" {
		srv.HTTP.Addr = defaultHTTPAddr
	}
	setDuration(&srv.HTTP.Timeout, defaultHTTPTimeout)
	setDuration(&srv.Handlers.DefaultTimeout, defaultHandlerTimeout)
	setDuration(&srv.Handlers.CommandTimeout, defaultCommandTimeout)
	setDuration(&srv.Handlers.QueryTimeout, defaultQueryTimeout)

	st := &rc.Storage
	if st.Driver == "" {
		st.Driver = StorageDriverS3
	}
	if st.Region == "" {
		st.Region = defaultRegion
	}
	setDuration(&st.UploadTTL, defaultUploadTTL)
	setDuration(&st.DownloadTTL, defaultDownloadTTL)
	setDuration(&st.PartTTL, defaultPartTTL)

	up := &rc.Upload
	setInt64(&up.MinPartSize, defaultMinPartSize)
	setInt64(&up.MaxPartSize, defaultMaxPartSize)
	setInt64(&up.PreferredPartSize, defaultPreferredPartSize)
	setInt64(&up.SingleUploadLimit, defaultSingleUploadLimit)
	setInt64(&up.MultipartThreshold, defaultMultipartThresh)
	if up.MaxParts == 0 {
		up.MaxParts = defaultMaxParts
	}
	if up.DefaultMaxRetries == 0 {
		up.DefaultMaxRetries = defaultMaxRetries
	}

	th := &rc.Thumbnail
	if th.Mode == "" {
		th.Mode = ThumbnailModeAsync
	}
	if th.Width == 0 {
		th.Width = defaultThumbnailWidth
	}
	setDuration(&th.Timeout, defaultThumbnailTimeout)
	setDuration(&th.SourceTTL, defaultThumbnailReadTTL)
	if th.FFmpegPath == "" {
		th.FFmpegPath = "ffmpeg"
	}
	if th.Workers == 0 {
		th.Workers = defaultThumbnailWorkers
	}
	if th.QueueSize == 0 {
		th.QueueSize = defaultThumbnailQueue
	}
	if th.QueueKey == "" {
		th.QueueKey = defaultThumbnailQueueKey
	}
	if th.MaxAttempts == 0 {
		th.MaxAttempts = defaultThumbnailAttempts
	}

	if rc.Transcode.Region == "" {
		rc.Transcode.Region = st.Region
	}
	setDuration(&rc.Auth.WorkerClockSkew, defaultWorkerClockSkew)
	if rc.Metrics.Path == "" {
		rc.Metrics.Path = defaultMetricsPath
	}
}

func setDuration(d *Duration, def time.Duration) {
	if *d <= 0 {
		*d = Duration(def)
	}
}

func setInt64(v *int64, def int64) {
	if *v <= 0 {
		*v = def
	}
}

package vo

// SingleUploadPlan 描述单次 PUT 上传所需的签名 URL 与对象 Key。
type SingleUploadPlan struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

// PartURL 对应 multipart 会话中某个分片的签名 URL。
type PartURL struct {
	PartNumber int32  `json:"partNumber"`
	URL        string `json:"url"`
}

// MultipartPlan 描述一次 multipart 上传会话，服务端不持久化。
type MultipartPlan struct {
	Key      string    `json:"key"`
	UploadID string    `json:"uploadId"`
	Parts    []PartURL `json:"signedUrls"`
}

// CompletedPart 为客户端回传的分片完成信息。
type CompletedPart struct {
	PartNumber int32  `json:"PartNumber"`
	ETag       string `json:"ETag"`
}

// UploadStrategy 枚举上传策略。
type UploadStrategy string

const (
	// UploadStrategySingle 单次 PUT。
	UploadStrategySingle UploadStrategy = "single"
	// UploadStrategyMultipart 分片上传。
	UploadStrategyMultipart UploadStrategy = "multipart"
)

// UploadPlan 为服务端给出的上传策略建议。
type UploadPlan struct {
	Strategy      UploadStrategy `json:"strategy"`
	FileSize      int64          `json:"fileSize"`
	PartSize      int64          `json:"partSize,omitempty"`
	PartsCount    int32          `json:"partsCount"`
	MinPartsCount int32          `json:"minPartsCount"`
	MaxPartsCount int32          `json:"maxPartsCount"`
}

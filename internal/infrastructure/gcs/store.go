// Package gcs 提供基于 V4 Signed URL 与 XML multipart API 的 Google Cloud Storage 对象存储实现。
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/oauth2/google"
)

// 服务端调用签名 URL 时使用的有效期。
const internalCallTTL = 5 * time.Minute

// Store 通过服务账号私钥签发 V4 URL，并以签名请求调用 GCS XML multipart API。
type Store struct {
	bucket         string
	region         string
	googleAccessID string
	privateKey     []byte
	hostname       string
	insecure       bool
	client         *storage.Client
	httpClient     *http.Client
	now            func() time.Time
	log            *log.Helper
}

// Option 定义可选配置。
type Option func(*Store)

// WithClock 覆盖时间获取函数，便于测试。
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithServiceAccountKey 允许直接注入访问 ID 与私钥（测试友好）。
func WithServiceAccountKey(accessID string, privateKey []byte) Option {
	return func(s *Store) {
		if accessID != "" {
			s.googleAccessID = accessID
		}
		if len(privateKey) > 0 {
			s.privateKey = append([]byte(nil), privateKey...)
		}
	}
}

// WithEndpoint 覆盖签名 URL 的主机名，insecure 为 true 时使用 http。
func WithEndpoint(hostname string, insecure bool) Option {
	return func(s *Store) {
		s.hostname = hostname
		s.insecure = insecure
	}
}

// WithHTTPClient 覆盖服务端发起签名请求所用的 HTTP 客户端。
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithStorageClient 使用 storage.Client 写入服务端对象，未设置时走签名 PUT。
func WithStorageClient(client *storage.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// NewStore 创建 Store；未注入私钥时从默认凭据中读取 service account JSON。
func NewStore(ctx context.Context, bucket, region, accessID string, logger log.Logger, opts ...Option) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("gcs store: bucket is required")
	}
	s := &Store{
		bucket:         bucket,
		region:         region,
		googleAccessID: accessID,
		httpClient:     http.DefaultClient,
		now:            time.Now,
		log:            log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.privateKey) == 0 {
		privKey, detectedAccessID, err := loadServiceAccountKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs store: %w", err)
		}
		s.privateKey = privKey
		if s.googleAccessID == "" {
			s.googleAccessID = detectedAccessID
		} else if detectedAccessID != "" && detectedAccessID != s.googleAccessID {
			s.log.WithContext(ctx).Warnf("gcs signer access id mismatch: config=%s credentials=%s", s.googleAccessID, detectedAccessID)
		}
	}
	if s.googleAccessID == "" {
		return nil, errors.New("gcs store: google access id is required")
	}
	return s, nil
}

// Bucket 返回 bucket 名称。
func (s *Store) Bucket() string { return s.bucket }

// Region 返回 bucket 所在区域。
func (s *Store) Region() string { return s.region }

func (s *Store) sign(method, key, contentType string, query url.Values, ttl time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:          storage.SigningSchemeV4,
		Method:          method,
		Expires:         s.now().Add(ttl),
		ContentType:     contentType,
		QueryParameters: query,
		GoogleAccessID:  s.googleAccessID,
		PrivateKey:      s.privateKey,
		Hostname:        s.hostname,
		Insecure:        s.insecure,
	}
	signed, err := storage.SignedURL(s.bucket, key, opts)
	if err != nil {
		return "", fmt.Errorf("signed url: %w", err)
	}
	return signed, nil
}

// PresignPut 签发单次 PUT 上传 URL。
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	signed, err := s.sign(http.MethodPut, key, contentType, nil, ttl)
	if err != nil {
		s.log.WithContext(ctx).Errorf("sign put failed: bucket=%s key=%s err=%v", s.bucket, key, err)
	}
	return signed, err
}

// PresignGet 签发 GET 下载 URL。
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	signed, err := s.sign(http.MethodGet, key, "", nil, ttl)
	if err != nil {
		s.log.WithContext(ctx).Errorf("sign get failed: bucket=%s key=%s err=%v", s.bucket, key, err)
	}
	return signed, err
}

// PresignPart 签发分片 PUT URL。
func (s *Store) PresignPart(_ context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	query := url.Values{
		"partNumber": {strconv.Itoa(int(partNumber))},
		"uploadId":   {uploadID},
	}
	return s.sign(http.MethodPut, key, "", query, ttl)
}

type initiateMultipartResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	UploadID string   `xml:"UploadId"`
}

type completeMultipartUpload struct {
	XMLName xml.Name       `xml:"CompleteMultipartUpload"`
	Parts   []completePart `xml:"Part"`
}

type completePart struct {
	PartNumber int32  `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

type completeMultipartResult struct {
	XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
	Location string   `xml:"Location"`
}

// CreateMultipart 调用 XML API 初始化 multipart 会话。
func (s *Store) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	signed, err := s.sign(http.MethodPost, key, contentType, url.Values{"uploads": {""}}, internalCallTTL)
	if err != nil {
		return "", err
	}
	var result initiateMultipartResult
	if err := s.do(ctx, http.MethodPost, signed, contentType, nil, &result); err != nil {
		return "", fmt.Errorf("initiate multipart: %w", err)
	}
	return result.UploadID, nil
}

// CompleteMultipart 提交分片列表完成上传。
func (s *Store) CompleteMultipart(ctx context.Context, key, uploadID string, parts []vo.CompletedPart) (string, error) {
	body := completeMultipartUpload{Parts: make([]completePart, 0, len(parts))}
	for _, p := range parts {
		body.Parts = append(body.Parts, completePart{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	payload, err := xml.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode complete request: %w", err)
	}
	signed, err := s.sign(http.MethodPost, key, "application/xml", url.Values{"uploadId": {uploadID}}, internalCallTTL)
	if err != nil {
		return "", err
	}
	var result completeMultipartResult
	if err := s.do(ctx, http.MethodPost, signed, "application/xml", payload, &result); err != nil {
		return "", fmt.Errorf("complete multipart: %w", err)
	}
	return result.Location, nil
}

// AbortMultipart 放弃 multipart 会话。
func (s *Store) AbortMultipart(ctx context.Context, key, uploadID string) error {
	signed, err := s.sign(http.MethodDelete, key, "", url.Values{"uploadId": {uploadID}}, internalCallTTL)
	if err != nil {
		return err
	}
	if err := s.do(ctx, http.MethodDelete, signed, "", nil, nil); err != nil {
		return fmt.Errorf("abort multipart: %w", err)
	}
	return nil
}

// Put 写入服务端生成的小对象。
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.client != nil {
		w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
		w.ContentType = contentType
		if _, err := io.Copy(w, body); err != nil {
			_ = w.Close()
			return fmt.Errorf("write object: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close object writer: %w", err)
		}
		return nil
	}
	payload, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	signed, err := s.sign(http.MethodPut, key, contentType, nil, internalCallTTL)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, signed, contentType, payload, nil)
}

func (s *Store) do(ctx context.Context, method, target, contentType string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("gcs %s returned %d: %s", method, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := xml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type serviceAccountKey struct {
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

func loadServiceAccountKey(ctx context.Context) ([]byte, string, error) {
	creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadWrite)
	if err != nil {
		return nil, "", fmt.Errorf("find default credentials: %w", err)
	}
	if len(creds.JSON) == 0 {
		return nil, "", errors.New("service account JSON not found in default credentials")
	}
	return parseServiceAccountKey(creds.JSON)
}

func parseServiceAccountKey(raw []byte) ([]byte, string, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, "", fmt.Errorf("parse service account json: %w", err)
	}
	if key.PrivateKey == "" {
		return nil, "", errors.New("service account private key is empty; use a service account JSON credential")
	}
	return []byte(key.PrivateKey), key.ClientEmail, nil
}

// ProvideStore 供 Wire 注入使用；配置了 key 文件时优先读取该文件。
func ProvideStore(ctx context.Context, cfg configloader.StorageConfig, logger log.Logger) (*Store, func(), error) {
	var opts []Option
	if path := cfg.GCS.ServiceAccountKeyPath; path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read service account key: %w", err)
		}
		privKey, email, err := parseServiceAccountKey(raw)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, WithServiceAccountKey(email, privKey))
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init gcs client: %w", err)
	}
	opts = append(opts, WithStorageClient(client))

	store, err := NewStore(ctx, cfg.Bucket, cfg.Region, cfg.GCS.SignerEmail, logger, opts...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return store, cleanup, nil
}

package server_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/controllers"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/metrics"
	"github.com/bionicotaku/lingo-services-upload/internal/models/po"
	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/repositories"
	"github.com/bionicotaku/lingo-services-upload/internal/server"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct{}

func (fakeStore) Bucket() string { return "bucket" }
func (fakeStore) Region() string { return "us-east-1" }
func (fakeStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://store.example/" + key, nil
}
func (fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.example/" + key, nil
}
func (fakeStore) CreateMultipart(context.Context, string, string) (string, error) { return "id", nil }
func (fakeStore) PresignPart(context.Context, string, string, int32, time.Duration) (string, error) {
	return "https://store.example/part", nil
}
func (fakeStore) CompleteMultipart(context.Context, string, string, []vo.CompletedPart) (string, error) {
	return "", nil
}
func (fakeStore) AbortMultipart(context.Context, string, string) error        { return nil }
func (fakeStore) Put(context.Context, string, io.Reader, int64, string) error { return nil }

type emptyRepo struct{}

func (emptyRepo) Create(context.Context, txmanager.Session, repositories.CreateVideoInput) (*po.Video, error) {
	return nil, repositories.ErrVideoExists
}
func (emptyRepo) GetByID(context.Context, txmanager.Session, uuid.UUID) (*po.Video, error) {
	return nil, repositories.ErrVideoNotFound
}
func (emptyRepo) GetByIDForUpdate(context.Context, txmanager.Session, uuid.UUID) (*po.Video, error) {
	return nil, repositories.ErrVideoNotFound
}
func (emptyRepo) GetByInputKeyForUpdate(context.Context, txmanager.Session, string) (*po.Video, error) {
	return nil, repositories.ErrVideoNotFound
}
func (emptyRepo) UpdateState(context.Context, txmanager.Session, repositories.UpdateVideoStateInput) (*po.Video, error) {
	return nil, repositories.ErrVideoNotFound
}
func (emptyRepo) ListByOwner(context.Context, txmanager.Session, string, *po.VideoStatus) ([]*po.Video, error) {
	return nil, nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, nil)
}

func (passthroughTx) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, nil)
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Ping(ctx context.Context) error { return f(ctx) }

func newServer(t *testing.T, probe server.ReadinessProbe) (*khttp.Server, *metrics.Recorder) {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	rec := metrics.NewRecorder()

	issuer, err := services.NewIssuer(fakeStore{}, services.IssuerConfig{}, logger, services.WithIssuerMetrics(rec))
	require.NoError(t, err)
	uploads, err := services.NewUploadService(issuer, services.UploadLimits{}, logger)
	require.NoError(t, err)
	videos, err := services.NewVideoService(emptyRepo{}, passthroughTx{}, issuer, nil, logger)
	require.NoError(t, err)

	authCfg := configloader.AuthConfig{AllowHeaderUserID: true}
	base := controllers.NewBaseHandler(controllers.HandlerTimeouts{})
	auth := controllers.NewAuthenticator(authCfg)

	srv := server.NewHTTPServer(
		configloader.ServerConfig{},
		configloader.MetricsConfig{Enabled: true},
		controllers.NewUploadHandler(base, auth, uploads),
		controllers.NewVideoHandler(base, auth, videos),
		controllers.NewWorkerHandler(base, controllers.NewWorkerVerifier(authCfg), videos, logger),
		rec,
		probe,
		logger,
	)
	return srv, rec
}

func serve(srv *khttp.Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newServer(t, probeFunc(func(context.Context) error { return nil }))
	require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/readyz", nil).Code)

	failing, _ := newServer(t, probeFunc(func(context.Context) error { return errors.New("db down") }))
	require.Equal(t, http.StatusOK, serve(failing, http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(failing, http.MethodGet, "/readyz", nil).Code)
}

func TestMetricsEndpointReportsRequests(t *testing.T) {
	srv, _ := newServer(t, nil)

	ok := serve(srv, http.MethodGet, "/video/get-presigned-single?fileName=a.mp4&fileType=video/mp4",
		http.Header{"X-Md-Global-User-Id": []string{"u1"}})
	require.Equal(t, http.StatusOK, ok.Code)
	denied := serve(srv, http.MethodGet, "/video/get-presigned-single?fileName=a.mp4&fileType=video/mp4", nil)
	require.Equal(t, http.StatusUnauthorized, denied.Code)

	body := serve(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, body.Code)
	text := body.Body.String()
	require.Contains(t, text, `upload_http_requests_total{code="200",operation="/video/get-presigned-single"} 1`)
	require.Contains(t, text, `upload_http_requests_total{code="401",operation="/video/get-presigned-single"} 1`)
	require.Contains(t, text, `upload_presigned_urls_total{kind="put"} 1`)
}

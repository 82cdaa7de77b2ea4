package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/golang-jwt/jwt/v5"
)

// Worker 签名相关请求头。
const (
	HeaderWorkerTimestamp  = "X-Worker-Timestamp"
	HeaderWorkerSignature  = "X-Worker-Signature"
	defaultWorkerClockSkew = 5 * time.Minute
)

// Authenticator 解析调用方身份：优先校验 Bearer JWT，其次信任网关透传的用户 Header。
type Authenticator struct {
	secret      []byte
	issuer      string
	allowHeader bool
	now         func() time.Time
}

// NewAuthenticator 构造 Authenticator。
func NewAuthenticator(cfg configloader.AuthConfig) *Authenticator {
	return &Authenticator{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.JWTIssuer,
		allowHeader: cfg.AllowHeaderUserID,
		now:         time.Now,
	}
}

// UserID 返回已认证的用户 ID，失败时返回 Authentication 错误。
func (a *Authenticator) UserID(meta HandlerMetadata) (string, error) {
	if raw := meta.Authorization; raw != "" {
		if len(a.secret) == 0 {
			return "", services.AuthenticationError("bearer tokens are not accepted")
		}
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", services.AuthenticationError("invalid Authorization header")
		}
		return a.parseToken(strings.TrimSpace(token))
	}
	if a.allowHeader && meta.UserID != "" {
		return meta.UserID, nil
	}
	return "", services.AuthenticationError("User not authenticated")
}

func (a *Authenticator) parseToken(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", services.AuthenticationError("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", services.AuthenticationError("token subject is required")
	}
	return claims.Subject, nil
}

// WorkerVerifier 校验 worker 回调的 HMAC 签名。
type WorkerVerifier struct {
	secret []byte
	skew   time.Duration
	now    func() time.Time
}

// NewWorkerVerifier 构造 WorkerVerifier。
func NewWorkerVerifier(cfg configloader.AuthConfig) *WorkerVerifier {
	skew := cfg.WorkerClockSkew.Std()
	if skew <= 0 {
		skew = defaultWorkerClockSkew
	}
	return &WorkerVerifier{
		secret: []byte(cfg.WorkerSecret),
		skew:   skew,
		now:    time.Now,
	}
}

// WithClock 覆盖时间来源，便于测试。
func (v *WorkerVerifier) WithClock(clock func() time.Time) *WorkerVerifier {
	if clock != nil {
		v.now = clock
	}
	return v
}

// Sign 计算 hex(HMAC-SHA256(secret, timestamp + "." + body))。
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 校验时间戳偏差与签名，未配置密钥时拒绝所有请求。
func (v *WorkerVerifier) Verify(_ context.Context, timestamp, signature string, body []byte) error {
	if len(v.secret) == 0 {
		return services.AuthenticationError("worker channel is not configured")
	}
	if timestamp == "" || signature == "" {
		return services.AuthenticationError("worker signature is required")
	}
	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return services.AuthenticationError("invalid worker timestamp")
	}
	delta := v.now().Sub(time.Unix(sec, 0))
	if delta < 0 {
		delta = -delta
	}
	if delta > v.skew {
		return services.AuthenticationError("worker timestamp outside allowed skew")
	}
	expected, err := hex.DecodeString(Sign(v.secret, timestamp, body))
	if err != nil {
		return errors.New("encode expected signature")
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || !hmac.Equal(expected, got) {
		return services.AuthenticationError("invalid worker signature")
	}
	return nil
}

// userFromContext 组合 metadata 与 Authenticator 取得调用方 ID。
func (h *BaseHandler) userFromContext(ctx context.Context, auth *Authenticator) (string, error) {
	return auth.UserID(h.ExtractMetadata(ctx))
}

package services_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-upload/internal/models/vo"
	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uploadKeyPattern = regexp.MustCompile(`^uploads/\d+-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}-u1\.mp4$`)

func TestIssuerGenerateKey(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	id := uuid.MustParse("6f1c1c44-8f4a-4c56-9b6e-0e3d6a2f1a11")
	issuer := newIssuer(t, newFakeStore(),
		services.WithIssuerClock(func() time.Time { return fixed }),
		services.WithIDGenerator(func() uuid.UUID { return id }),
	)

	key := issuer.GenerateKey("Holiday.MP4", "u1")
	assert.Equal(t, "uploads/1700000000123-6f1c1c44-8f4a-4c56-9b6e-0e3d6a2f1a11-u1.MP4", key)
	assert.True(t, services.OwnsKey(key, "u1"))

	dashed := issuer.GenerateKey("clip.mov", "team-42")
	assert.True(t, services.OwnsKey(dashed, "team-42"))
	assert.False(t, services.OwnsKey(dashed, "42"))
}

func TestIssuerGenerateKeyUnique(t *testing.T) {
	issuer := newIssuer(t, newFakeStore())
	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		key := issuer.GenerateKey("clip.mp4", "u1")
		require.Regexp(t, uploadKeyPattern, key)
		_, dup := seen[key]
		require.Falsef(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestFileExtension(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"clip.mp4", "mp4"},
		{"CLIP.MOV", "MOV"},
		{"Clip.Mp4", "Mp4"},
		{"archive.tar.gz", "gz"},
		{"noextension", "bin"},
		{".hidden", "bin"},
		{"trailing.", "bin"},
		{"", "bin"},
		{"dir.v2/clip", "bin"},
		{`C:\videos\clip.webm`, "webm"},
		{"weird.mp4?x=1", "bin"},
		{"x.abcdefghijklmnopq", "bin"},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, services.FileExtension(tc.name), "file name %q", tc.name)
	}
}

func TestIssueUploadURLDefaults(t *testing.T) {
	store := newFakeStore()
	issuer := newIssuer(t, store)

	plan, err := issuer.IssueUploadURL(context.Background(), "a.mp4", "video/mp4", "u1", 0)
	require.NoError(t, err)
	require.Regexp(t, uploadKeyPattern, plan.Key)
	assert.Contains(t, plan.UploadURL, plan.Key)

	calls := store.presignsFor("PUT")
	require.Len(t, calls, 1)
	assert.Equal(t, services.DefaultUploadURLTTL, calls[0].ttl)
	assert.Equal(t, plan.Key, calls[0].key)
}

func TestIssueUploadURLStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.presignErr = errStoreDown
	issuer := newIssuer(t, store)

	_, err := issuer.IssueUploadURL(context.Background(), "a.mp4", "video/mp4", "u1", time.Minute)
	requireKind(t, err, services.KindExternalService)
	assert.True(t, errors.Is(err, errStoreDown))
}

func TestIssueDownloadURL(t *testing.T) {
	store := newFakeStore()
	issuer := newIssuer(t, store)

	url, err := issuer.IssueDownloadURL(context.Background(), "uploads/k.mp4", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "uploads/k.mp4")
	calls := store.presignsFor("GET")
	require.Len(t, calls, 1)
	assert.Equal(t, services.DefaultDownloadURLTTL, calls[0].ttl)

	_, err = issuer.IssueDownloadURL(context.Background(), "uploads/k.mp4", 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, store.presignsFor("GET")[1].ttl)

	_, err = issuer.IssueDownloadURL(context.Background(), "  ", 0)
	requireKind(t, err, services.KindValidation)
}

func TestInitiateMultipart(t *testing.T) {
	store := newFakeStore()
	issuer := newIssuer(t, store)

	plan, err := issuer.InitiateMultipart(context.Background(), "big.mp4", "video/mp4", 4, "u1")
	require.NoError(t, err)
	assert.Equal(t, "upload-123", plan.UploadID)
	require.Regexp(t, uploadKeyPattern, plan.Key)
	require.Len(t, plan.Parts, 4)
	for i, part := range plan.Parts {
		assert.Equal(t, int32(i+1), part.PartNumber)
		assert.Contains(t, part.URL, fmt.Sprintf("partNumber=%d", i+1))
	}
	for _, call := range store.presignsFor("PART") {
		assert.Equal(t, services.DefaultPartURLTTL, call.ttl)
	}
}

func TestInitiateMultipartRejectsZeroParts(t *testing.T) {
	store := newFakeStore()
	issuer := newIssuer(t, store)

	_, err := issuer.InitiateMultipart(context.Background(), "big.mp4", "video/mp4", 0, "u1")
	requireKind(t, err, services.KindValidation)
	assert.Empty(t, store.presignsFor("PART"))
}

func TestInitiateMultipartMissingUploadID(t *testing.T) {
	store := newFakeStore()
	store.uploadID = ""
	issuer := newIssuer(t, store)

	_, err := issuer.InitiateMultipart(context.Background(), "big.mp4", "video/mp4", 2, "u1")
	requireKind(t, err, services.KindExternalService)
	assert.Empty(t, store.presignsFor("PART"))
}

func TestInitiateMultipartAbortsOnPresignFailure(t *testing.T) {
	store := newFakeStore()
	store.partErr = errStoreDown
	issuer := newIssuer(t, store)

	_, err := issuer.InitiateMultipart(context.Background(), "big.mp4", "video/mp4", 3, "u1")
	requireKind(t, err, services.KindExternalService)
	require.Len(t, store.aborted, 1)
	assert.Contains(t, store.aborted[0], "|upload-123")
}

func TestCompleteMultipartMissingETagNeverCallsStore(t *testing.T) {
	inputs := [][]vo.CompletedPart{
		{{PartNumber: 1, ETag: ""}},
		{{PartNumber: 1, ETag: "e1"}, {PartNumber: 2, ETag: ""}},
		{{PartNumber: 3, ETag: "e3"}, {PartNumber: 1, ETag: "   "}, {PartNumber: 2, ETag: "e2"}},
	}
	for i, parts := range inputs {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			store := newFakeStore()
			issuer := newIssuer(t, store)

			_, err := issuer.CompleteMultipart(context.Background(), "uploads/k-u1.mp4", "upload-123", parts)
			requireKind(t, err, services.KindValidation)
			assert.Contains(t, err.Error(), "ETag missing for part")
			var svcErr *services.Error
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, services.ReasonPartETagMissing, svcErr.Reason)
			assert.Zero(t, store.completeCalls)
		})
	}
}

func TestCompleteMultipartSortsParts(t *testing.T) {
	store := newFakeStore()
	store.location = "https://videos-bucket.s3.us-east-1.amazonaws.com/uploads/k-u1.mp4"
	issuer := newIssuer(t, store)

	location, err := issuer.CompleteMultipart(context.Background(), "uploads/k-u1.mp4", "upload-123", []vo.CompletedPart{
		{PartNumber: 3, ETag: `"c"`},
		{PartNumber: 1, ETag: `"a"`},
		{PartNumber: 2, ETag: `"b"`},
	})
	require.NoError(t, err)
	assert.Equal(t, store.location, location)
	require.Len(t, store.completedParts, 3)
	for i, part := range store.completedParts {
		assert.Equal(t, int32(i+1), part.PartNumber)
	}
}

func TestCompleteMultipartLocationFallback(t *testing.T) {
	store := newFakeStore()
	store.bucket = "media"
	store.region = "eu-west-1"
	issuer := newIssuer(t, store)

	location, err := issuer.CompleteMultipart(context.Background(), "uploads/k-u1.mp4", "upload-123", []vo.CompletedPart{{PartNumber: 1, ETag: "e"}})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/uploads/k-u1.mp4", location)
}

func TestCompleteMultipartRejectsMalformedParts(t *testing.T) {
	cases := map[string][]vo.CompletedPart{
		"empty":     nil,
		"zero":      {{PartNumber: 0, ETag: "e"}},
		"too-large": {{PartNumber: services.MaxMultipartParts + 1, ETag: "e"}},
		"duplicate": {{PartNumber: 1, ETag: "a"}, {PartNumber: 1, ETag: "b"}},
	}
	for name, parts := range cases {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			issuer := newIssuer(t, store)
			_, err := issuer.CompleteMultipart(context.Background(), "uploads/k-u1.mp4", "upload-123", parts)
			requireKind(t, err, services.KindValidation)
			assert.Zero(t, store.completeCalls)
		})
	}
}

func TestCompleteMultipartStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.completeErr = errStoreDown
	issuer := newIssuer(t, store)

	_, err := issuer.CompleteMultipart(context.Background(), "uploads/k-u1.mp4", "upload-123", []vo.CompletedPart{{PartNumber: 1, ETag: "e"}})
	requireKind(t, err, services.KindExternalService)
	assert.Equal(t, 1, store.completeCalls)
}

func TestAbortMultipart(t *testing.T) {
	store := newFakeStore()
	issuer := newIssuer(t, store)

	require.NoError(t, issuer.AbortMultipart(context.Background(), "uploads/k-u1.mp4", "upload-123"))
	assert.Equal(t, []string{"uploads/k-u1.mp4|upload-123"}, store.aborted)

	err := issuer.AbortMultipart(context.Background(), "uploads/k-u1.mp4", "")
	requireKind(t, err, services.KindValidation)

	store.abortErr = errStoreDown
	err = issuer.AbortMultipart(context.Background(), "uploads/k-u1.mp4", "upload-123")
	requireKind(t, err, services.KindExternalService)
}

func TestUploadBytes(t *testing.T) {
	store := newFakeStore()
	issuer := newIssuer(t, store)

	key, err := issuer.UploadBytes(context.Background(), "thumbnails/u1/thumb-a.jpg", []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "thumbnails/u1/thumb-a.jpg", key)
	data, ok := store.object(key)
	require.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
	assert.Equal(t, "image/jpeg", store.contentTypes[key])
}

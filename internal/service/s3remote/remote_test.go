package s3remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EthTicker/internal/domain/models"
	"EthTicker/pkg/logger"
)

type putCall struct {
	key  string
	body []byte
}

type fakeS3 struct {
	calls []putCall
	errs  []error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3v2.PutObjectInput, _ ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.calls = append(f.calls, putCall{key: *in.Key, body: body})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &s3v2.PutObjectOutput{}, nil
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New(http.StatusText(status)),
		},
	}
}

func TestUploadThenFinalizeWritesManifest(t *testing.T) {
	api := &fakeS3{}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := New(api, "bucket", "ticker", clockwork.NewFakeClockAt(now), logger.NewNop())

	require.NoError(t, r.UploadArtifact(context.Background(), "upper-ticker", models.KindImage, []byte("a")))
	require.NoError(t, r.UploadArtifact(context.Background(), "lower-ticker", models.KindImage, []byte("b")))
	require.NoError(t, r.Finalize(context.Background(), "ticker3"))

	require.Len(t, api.calls, 3)
	assert.Equal(t, "ticker/upper-ticker.png", api.calls[0].key)
	assert.Equal(t, "ticker/manifest.json", api.calls[2].key)

	var m manifest
	require.NoError(t, json.Unmarshal(api.calls[2].body, &m))
	assert.Equal(t, "ticker3", m.Reason)
	assert.Equal(t, []string{"upper-ticker", "lower-ticker"}, m.Artifacts)
	assert.Equal(t, "2024-01-01T12:00:00Z", m.UpdatedAt)
	assert.Empty(t, r.pending)
}

func TestClassifiesResponseErrors(t *testing.T) {
	tests := map[string]struct {
		err       error
		transient bool
	}{
		"throttled":   {responseError(http.StatusServiceUnavailable), true},
		"slow down":   {responseError(http.StatusTooManyRequests), true},
		"forbidden":   {responseError(http.StatusForbidden), false},
		"no response": {errors.New("connection reset"), true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := New(&fakeS3{errs: []error{tt.err}}, "bucket", "p", clockwork.NewFakeClock(), logger.NewNop())
			err := r.UploadArtifact(context.Background(), "x", models.KindImage, nil)
			assert.Equal(t, tt.transient, errors.Is(err, models.ErrTransientRemote))
			assert.Equal(t, !tt.transient, errors.Is(err, models.ErrPermanentRemote))
		})
	}
}

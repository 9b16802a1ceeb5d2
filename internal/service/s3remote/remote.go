// Package s3remote publishes artifacts to an S3 bucket.
package s3remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"EthTicker/internal/domain/models"
	"EthTicker/pkg/logger"
)

const manifestName = "manifest.json"

// PutObjectAPI is the part of the S3 client the remote uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
}

type manifest struct {
	Reason    string   `json:"reason"`
	Artifacts []string `json:"artifacts"`
	UpdatedAt string   `json:"updated_at"`
}

// Remote implements repository.Remote. Artifacts are stored under prefix/name;
// Finalize writes prefix/manifest.json naming the artifacts uploaded since the previous finalize.
type Remote struct {
	api    PutObjectAPI
	bucket string
	prefix string
	clock  clockwork.Clock
	log    *logger.Logger

	mu      sync.Mutex
	pending []string
}

func New(api PutObjectAPI, bucket, prefix string, clock clockwork.Clock, log *logger.Logger) *Remote {
	return &Remote{api: api, bucket: bucket, prefix: prefix, clock: clock, log: log}
}

func (r *Remote) UploadArtifact(ctx context.Context, name string, kind models.ArtifactKind, data []byte) error {
	key := path.Join(r.prefix, name+".png")
	_, err := r.api.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:      awsv2.String(r.bucket),
		Key:         awsv2.String(key),
		Body:        bytes.NewReader(data),
		ContentType: awsv2.String("image/png"),
		Metadata:    map[string]string{"kind": string(kind)},
	})
	if err != nil {
		return classify(ctx, "put "+key, err)
	}

	r.mu.Lock()
	r.pending = append(r.pending, name)
	r.mu.Unlock()
	r.log.Debug("s3 artifact stored", logger.String("bucket", r.bucket), logger.String("key", key))
	return nil
}

func (r *Remote) Finalize(ctx context.Context, reason string) error {
	r.mu.Lock()
	m := manifest{
		Reason:    reason,
		Artifacts: append([]string(nil), r.pending...),
		UpdatedAt: r.clock.Now().UTC().Format(time.RFC3339),
	}
	r.mu.Unlock()

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	key := path.Join(r.prefix, manifestName)
	_, err = r.api.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:      awsv2.String(r.bucket),
		Key:         awsv2.String(key),
		Body:        bytes.NewReader(body),
		ContentType: awsv2.String("application/json"),
	})
	if err != nil {
		return classify(ctx, "put "+key, err)
	}

	r.mu.Lock()
	r.pending = r.pending[len(m.Artifacts):]
	r.mu.Unlock()
	return nil
}

func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return models.ClassifyStatus(op, re.HTTPStatusCode(), re.Error())
	}
	// no HTTP response: connection reset, DNS, timeouts
	return &models.RemoteError{Op: op, Status: 0, Message: err.Error(), Transient: true}
}

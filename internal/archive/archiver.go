// Package archive implements best-effort, asynchronous epoch-history
// archival: every epoch history finalized by phase C is uploaded
// content-addressed to an S3-compatible bucket, strictly as a
// convenience for external auditors and disaster recovery. A failed or
// slow upload must never block, delay, or fail epoch processing itself.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rechain/fedicore/pkg/codec"
	"github.com/rechain/fedicore/pkg/types"
)

// Archiver uploads finalized epoch histories to an S3-compatible bucket,
// keyed by the content hash of their canonical encoding.
type Archiver struct {
	client     *minio.Client
	bucket     string
	codec      *codec.Codec
	maxRetries int
	retryDelay time.Duration

	queue chan job
}

type job struct {
	epoch   uint64
	history types.EpochHistory
}

// Config holds the MinIO connection details for an Archiver.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// NewArchiver connects to cfg's bucket, creating it if absent, and starts
// the background upload worker. Ctx's cancellation stops the worker.
func NewArchiver(ctx context.Context, cfg Config, c *codec.Codec) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: create minio client: %w", err)
	}

	a := &Archiver{
		client:     client,
		bucket:     cfg.Bucket,
		codec:      c,
		maxRetries: 3,
		retryDelay: time.Second,
		queue:      make(chan job, 64),
	}

	if err := a.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("archive: ensure bucket: %w", err)
	}

	go a.run(ctx)
	return a, nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
		log.Printf("archive: created bucket %s", a.bucket)
	}
	return nil
}

// Enqueue schedules epoch's history for archival. It never blocks the
// caller (phase C's commit path): a full queue drops the oldest pending
// job rather than stall the epoch processor, logging the drop since an
// archive gap is recoverable (the history is still in the primary
// database) but worth knowing about.
func (a *Archiver) Enqueue(epoch uint64, history types.EpochHistory) {
	select {
	case a.queue <- job{epoch: epoch, history: history}:
	default:
		select {
		case <-a.queue:
			log.Printf("archive: queue full, dropped oldest pending upload to make room for epoch %d", epoch)
		default:
		}
		select {
		case a.queue <- job{epoch: epoch, history: history}:
		default:
			log.Printf("archive: queue still full, dropping epoch %d archival", epoch)
		}
	}
}

func (a *Archiver) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-a.queue:
			a.upload(ctx, j)
		}
	}
}

func (a *Archiver) upload(ctx context.Context, j job) {
	b, err := a.codec.EncodeEpochHistory(j.history)
	if err != nil {
		log.Printf("archive: encode epoch %d history: %v", j.epoch, err)
		return
	}
	cid := contentID(b)
	key := objectKey(cid)

	var uploadErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(a.retryDelay * time.Duration(attempt)):
			}
		}
		_, uploadErr = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{})
		if uploadErr == nil {
			return
		}
	}
	log.Printf("archive: giving up on epoch %d after %d attempts: %v", j.epoch, a.maxRetries, uploadErr)
}

// contentID is the hex sha256 of an epoch history's canonical encoding.
func contentID(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func objectKey(cid string) string {
	return filepath.Join("epochs", cid[:2], cid[2:4], cid)
}

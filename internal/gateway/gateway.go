// Package gateway is the persistence write path for a completed
// registration: proof bytes to S3, one row to Postgres. From the flow's
// point of view the whole operation either succeeds or fails.
package gateway

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/internal/session"
	"github.com/atelier-events/bookingbot/pkg/storage"
)

// FileFetcher streams the bytes of a transport-side file (Telegram file id).
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) (body io.ReadCloser, size int64, err error)
}

// ObjectStore holds proof objects.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// RecordWriter inserts completed registration rows.
type RecordWriter interface {
	Create(ctx context.Context, reg *registration.Registration) error
}

// Gateway uploads the payment proof and records the registration row.
// Inputs are assumed valid; the flow rejects unsupported files before
// calling here.
type Gateway struct {
	repo    RecordWriter
	store   ObjectStore
	fetcher FileFetcher
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a persistence gateway.
func New(repo RecordWriter, store ObjectStore, fetcher FileFetcher, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{repo: repo, store: store, fetcher: fetcher, logger: logger, now: time.Now}
}

// UploadAndRecord fetches the proof from the transport, uploads it to S3
// under a deterministic key, and inserts the registration row.
func (g *Gateway) UploadAndRecord(ctx context.Context, sess *session.Session, proof session.Attachment) (*registration.Registration, error) {
	body, size, err := g.fetcher.FetchFile(ctx, proof.FileID)
	if err != nil {
		return nil, fmt.Errorf("fetch proof: %w", err)
	}
	defer body.Close()

	contentType := proof.MIMEType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(proof.FileName)
	}
	key := storage.ProofKey(sess.FullName, g.now(), proof.FileName)
	url, err := g.store.Upload(ctx, key, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("upload proof: %w", err)
	}

	reg := &registration.Registration{
		FullName:    sess.FullName,
		Contact:     sess.Contact,
		DateLabel:   sess.DateLabel,
		TimeLabel:   sess.TimeLabel,
		AllergyNote: sess.AllergyNote,
		ProofKey:    key,
		ProofURL:    url,
		ProofFileID: proof.FileID,
	}
	if err := g.repo.Create(ctx, reg); err != nil {
		// The row is the source of truth; without it the uploaded object
		// is an orphan, so clean it up best-effort.
		if delErr := g.store.DeleteObject(ctx, key); delErr != nil {
			g.logger.Warn("orphan proof cleanup failed", zap.Error(delErr),
				zap.String("proof_key", key))
		}
		return nil, fmt.Errorf("record registration: %w", err)
	}

	g.logger.Info("registration persisted",
		zap.String("registration_id", reg.ID.String()),
		zap.String("proof_key", key))
	return reg, nil
}

package gateway

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-events/bookingbot/internal/registration"
	"github.com/atelier-events/bookingbot/internal/session"
)

type fakeFetcher struct {
	body string
	err  error
}

func (f *fakeFetcher) FetchFile(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), int64(len(f.body)), nil
}

type fakeStore struct {
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (s *fakeStore) Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploaded = append(s.uploaded, key)
	return "https://example.com/" + key, nil
}

func (s *fakeStore) DeleteObject(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeWriter struct {
	created []registration.Registration
	err     error
}

func (w *fakeWriter) Create(ctx context.Context, reg *registration.Registration) error {
	if w.err != nil {
		return w.err
	}
	w.created = append(w.created, *reg)
	return nil
}

func testSession() *session.Session {
	sess := session.New(100, 200)
	sess.FullName = "Anna Ivanova"
	sess.Contact = "@anna"
	sess.DateLabel = "21 Jan — Location A"
	sess.TimeLabel = "10:00"
	sess.AllergyNote = "none"
	sess.State = session.StatePayment
	return sess
}

func newGateway(store *fakeStore, writer *fakeWriter) *Gateway {
	g := New(writer, store, &fakeFetcher{body: "proof-bytes"}, nil)
	g.now = func() time.Time { return time.Unix(1737450000, 0) }
	return g
}

func TestUploadAndRecord(t *testing.T) {
	store := &fakeStore{}
	writer := &fakeWriter{}
	g := newGateway(store, writer)

	reg, err := g.UploadAndRecord(context.Background(), testSession(),
		session.Attachment{FileID: "file-1", FileName: "receipt.jpg", MIMEType: "image/jpeg"})
	require.NoError(t, err)

	assert.Equal(t, "proofs/anna-ivanova-1737450000.jpg", reg.ProofKey)
	assert.Equal(t, "https://example.com/proofs/anna-ivanova-1737450000.jpg", reg.ProofURL)
	assert.Equal(t, "file-1", reg.ProofFileID)
	assert.Equal(t, "Anna Ivanova", reg.FullName)

	require.Len(t, writer.created, 1)
	assert.Empty(t, store.deleted)
}

func TestUploadAndRecordCleansUpWhenInsertFails(t *testing.T) {
	store := &fakeStore{}
	writer := &fakeWriter{err: errors.New("connection refused")}
	g := newGateway(store, writer)

	_, err := g.UploadAndRecord(context.Background(), testSession(),
		session.Attachment{FileID: "file-1", FileName: "receipt.jpg", MIMEType: "image/jpeg"})
	require.Error(t, err)

	// Without a row the uploaded object is an orphan and must be removed.
	require.Len(t, store.uploaded, 1)
	assert.Equal(t, store.uploaded, store.deleted)
}

func TestUploadAndRecordFetchFailure(t *testing.T) {
	store := &fakeStore{}
	writer := &fakeWriter{}
	g := New(writer, store, &fakeFetcher{err: errors.New("file gone")}, nil)

	_, err := g.UploadAndRecord(context.Background(), testSession(),
		session.Attachment{FileID: "file-1", FileName: "receipt.jpg", MIMEType: "image/jpeg"})
	require.Error(t, err)
	assert.Empty(t, store.uploaded)
	assert.Empty(t, writer.created)
}

package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	sessionID, fileID := uuid.New(), uuid.New()
	p, err := s.Upload(ctx, sessionID, fileID, "Rental Agreement.PDF", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "sessions/"+sessionID.String()+"/"))
	assert.True(t, strings.HasSuffix(p, "_Rental_Agreement.pdf"))

	rc, err := s.Download(ctx, p)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4 body", string(b))

	require.NoError(t, s.Delete(ctx, p))
	_, err = s.Download(ctx, p)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, p), "deleting twice is not an error")
}

func TestLocalStorageDeleteSession(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	keep, drop := uuid.New(), uuid.New()
	kept, err := s.Upload(ctx, keep, uuid.New(), "a.pdf", strings.NewReader("a"))
	require.NoError(t, err)
	dropped, err := s.Upload(ctx, drop, uuid.New(), "b.pdf", strings.NewReader("b"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, drop))

	_, err = s.Download(ctx, dropped)
	assert.ErrorIs(t, err, ErrNotFound)
	rc, err := s.Download(ctx, kept)
	require.NoError(t, err)
	rc.Close()
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Download(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestObjectPathSanitizesNames(t *testing.T) {
	sessionID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	fileID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	got := objectPath(sessionID, fileID, `..\..\evil: deed?.pdf`)
	assert.Equal(t, "sessions/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222_evil__deed_.pdf", got)
}

func TestNewStorageUnknownType(t *testing.T) {
	_, err := NewStorage(context.Background(), StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

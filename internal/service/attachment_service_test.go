package service

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
	"github.com/seedlinghq/seedling-api/pkg/storage"
)

func newAttachmentFixture(t *testing.T, maxSize int64, allowed []string) *AttachmentService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewAttachmentService(AttachmentServiceParams{
		Store:        store,
		Signer:       storage.NewSignedURLSigner("test-secret", time.Hour),
		BaseURL:      "http://localhost:8080/api/v1",
		MaxFileSize:  maxSize,
		AllowedMIMEs: allowed,
	})
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	svc := newAttachmentFixture(t, 1024, []string{"application/pdf"})

	attachment, err := svc.Upload("teacher-1", "worksheet.pdf", "application/pdf", 11, strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "worksheet.pdf", attachment.Name)
	assert.Equal(t, int64(11), attachment.Size)
	require.Contains(t, attachment.URL, "token=")

	token := attachment.URL[strings.Index(attachment.URL, "token=")+len("token="):]
	path, err := svc.ResolveDownload(token)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestAttachmentUploadRejectsOversized(t *testing.T) {
	svc := newAttachmentFixture(t, 4, nil)

	_, err := svc.Upload("teacher-1", "big.pdf", "application/pdf", 100, strings.NewReader("too big"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttachmentUploadRejectsDisallowedType(t *testing.T) {
	svc := newAttachmentFixture(t, 1024, []string{"image/png"})

	_, err := svc.Upload("teacher-1", "script.sh", "application/x-sh", 5, strings.NewReader("#!/bin"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttachmentDownloadRejectsTamperedToken(t *testing.T) {
	svc := newAttachmentFixture(t, 1024, nil)

	attachment, err := svc.Upload("teacher-1", "photo.png", "image/png; charset=binary", 4, strings.NewReader("data"))
	require.NoError(t, err)

	token := attachment.URL[strings.Index(attachment.URL, "token=")+len("token="):]
	_, err = svc.ResolveDownload(token + "ff")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
	"github.com/seedlinghq/seedling-api/pkg/storage"
)

// AttachmentService stores assignment and submission files on local storage
// and hands out signed download URLs. The returned attachment metadata is
// what clients embed in assignment/submission payloads.
type AttachmentService struct {
	store        *storage.LocalStorage
	signer       *storage.SignedURLSigner
	baseURL      string
	maxFileSize  int64
	allowedMIMEs []string
	logger       *zap.Logger
}

// AttachmentServiceParams groups constructor dependencies.
type AttachmentServiceParams struct {
	Store        *storage.LocalStorage
	Signer       *storage.SignedURLSigner
	BaseURL      string
	MaxFileSize  int64
	AllowedMIMEs []string
	Logger       *zap.Logger
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(params AttachmentServiceParams) *AttachmentService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{
		store:        params.Store,
		signer:       params.Signer,
		baseURL:      params.BaseURL,
		maxFileSize:  params.MaxFileSize,
		allowedMIMEs: params.AllowedMIMEs,
		logger:       logger,
	}
}

// Upload validates and stores a file, returning its metadata with a signed
// download URL. The stored name is a fresh UUID so uploads never collide.
func (s *AttachmentService) Upload(ownerID, filename, contentType string, size int64, r io.Reader) (*models.Attachment, error) {
	if filename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "filename is required")
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxFileSize))
	}
	if !s.mimeAllowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not allowed", contentType))
	}

	id := uuid.NewString()
	relPath := filepath.Join(ownerID, id+filepath.Ext(filename))
	if _, err := s.store.SaveStream(relPath, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	token, _, err := s.signer.Generate(ownerID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	s.logger.Info("attachment stored",
		zap.String("attachment_id", id),
		zap.String("owner_id", ownerID),
		zap.Int64("size", size))

	return &models.Attachment{
		ID:   id,
		Name: filepath.Base(filename),
		Size: size,
		Type: contentType,
		URL:  fmt.Sprintf("%s/attachments/download?token=%s", s.baseURL, token),
	}, nil
}

// ResolveDownload parses a signed token and returns the stored file path.
func (s *AttachmentService) ResolveDownload(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	return s.store.Path(relPath), nil
}

func (s *AttachmentService) mimeAllowed(contentType string) bool {
	if len(s.allowedMIMEs) == 0 {
		return true
	}
	// Content-Type headers may carry parameters ("image/png; charset=...").
	mime := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range s.allowedMIMEs {
		if strings.EqualFold(mime, allowed) {
			return true
		}
	}
	return false
}

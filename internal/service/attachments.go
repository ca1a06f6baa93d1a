package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/models"
	"municipality/internal/storage"
)

var allowedExtensions = map[string]bool{
	"pdf": true, "jpg": true, "jpeg": true, "png": true,
	"gif": true, "doc": true, "docx": true, "txt": true,
}

var allowedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"image/jpeg":         true,
	"image/jpg":          true,
	"image/png":          true,
	"image/gif":          true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

const (
	folderRequests   = "requests"
	folderComplaints = "complaints"
)

// Upload is a file received from a client
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// AttachmentService stores files attached to requests and complaints
type AttachmentService struct {
	Deps
	storage storage.Service
	maxSize int64
	logger  *zap.Logger
}

// NewAttachmentService creates an attachment service
func NewAttachmentService(deps Deps, files storage.Service, maxSize int64) *AttachmentService {
	deps = deps.withDefaults()
	return &AttachmentService{
		Deps:    deps,
		storage: files,
		maxSize: maxSize,
		logger:  deps.Logger.Named("attachment_service"),
	}
}

// UploadForRequest attaches a file to a request owned by citizenID
func (s *AttachmentService) UploadForRequest(ctx context.Context, accountID, citizenID, requestID uint, upload Upload) (*models.Attachment, error) {
	request, err := s.Store.Requests().GetByID(ctx, requestID)
	if err != nil || request.CitizenID != citizenID {
		return nil, apperr.NotFound("Request not found or does not belong to you")
	}
	attachment := &models.Attachment{RequestID: uintPtr(requestID)}
	return s.save(ctx, accountID, folderRequests, upload, attachment)
}

// UploadForComplaint attaches a file to a complaint owned by citizenID
func (s *AttachmentService) UploadForComplaint(ctx context.Context, accountID, citizenID, complaintID uint, upload Upload) (*models.Attachment, error) {
	complaint, err := s.Store.Complaints().GetByID(ctx, complaintID)
	if err != nil || complaint.CitizenID != citizenID {
		return nil, apperr.NotFound("Complaint not found or does not belong to you")
	}
	attachment := &models.Attachment{ComplaintID: uintPtr(complaintID)}
	return s.save(ctx, accountID, folderComplaints, upload, attachment)
}

func (s *AttachmentService) save(ctx context.Context, accountID uint, folder string, upload Upload, attachment *models.Attachment) (*models.Attachment, error) {
	ext, contentType, err := s.validate(upload)
	if err != nil {
		return nil, err
	}

	storedName := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	path, size, err := s.storage.Store(ctx, folder, storedName, io.LimitReader(upload.Content, s.maxSize+1))
	if err != nil {
		return nil, apperr.Internal(err, "Failed to save file")
	}
	if size > s.maxSize {
		s.discard(ctx, path)
		return nil, s.tooLarge()
	}

	attachment.Filename = storedName
	attachment.OriginalFilename = filepath.Base(upload.FileName)
	attachment.Path = path
	attachment.Size = size
	attachment.ContentType = contentType
	attachment.UploadedBy = accountID
	attachment.UploadDate = s.Clock()

	if err := s.Store.Attachments().Create(ctx, attachment); err != nil {
		s.discard(ctx, path)
		return nil, storeErr(err, "failed to record attachment")
	}

	s.logger.Info("File uploaded",
		zap.Uint("file_id", attachment.ID),
		zap.String("path", path),
		zap.Int64("size", size))
	return attachment, nil
}

// validate checks the extension, MIME type and declared size of an upload
func (s *AttachmentService) validate(upload Upload) (string, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(upload.FileName), "."))
	if !allowedExtensions[ext] {
		return "", "", apperr.Validation("File type not allowed. Allowed types: %s", strings.Join(sortedKeys(allowedExtensions), ", "))
	}

	contentType, _, err := mime.ParseMediaType(upload.ContentType)
	if err != nil || !allowedMIMETypes[contentType] {
		return "", "", apperr.Validation("File MIME type not allowed: %s", upload.ContentType)
	}

	if upload.Size > s.maxSize {
		return "", "", s.tooLarge()
	}
	return ext, contentType, nil
}

func (s *AttachmentService) tooLarge() error {
	return apperr.Validation("File too large. Maximum size: %d MB", s.maxSize/(1024*1024))
}

func (s *AttachmentService) discard(ctx context.Context, path string) {
	if err := s.storage.Delete(ctx, path); err != nil {
		s.logger.Warn("Failed to remove stored file", zap.String("path", path), zap.Error(err))
	}
}

// removeStoredFiles deletes the files behind attachments whose rows are gone
func removeStoredFiles(ctx context.Context, files storage.Service, logger *zap.Logger, attachments []models.Attachment) {
	for _, attachment := range attachments {
		if err := files.Delete(ctx, attachment.Path); err != nil {
			logger.Warn("Failed to remove stored file",
				zap.Uint("file_id", attachment.ID),
				zap.String("path", attachment.Path),
				zap.Error(err))
		}
	}
}

// ListForRequest returns the attachments of a request
func (s *AttachmentService) ListForRequest(ctx context.Context, requestID uint) ([]models.Attachment, error) {
	attachments, err := s.Store.Attachments().ListByRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr(err, "failed to list attachments")
	}
	return attachments, nil
}

// ListForComplaint returns the attachments of a complaint
func (s *AttachmentService) ListForComplaint(ctx context.Context, complaintID uint) ([]models.Attachment, error) {
	attachments, err := s.Store.Attachments().ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, storeErr(err, "failed to list attachments")
	}
	return attachments, nil
}

// Get returns attachment metadata
func (s *AttachmentService) Get(ctx context.Context, id uint) (*models.Attachment, error) {
	attachment, err := s.Store.Attachments().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "File not found")
	}
	return attachment, nil
}

// Owner returns the citizen owning the request or complaint the attachment
// belongs to
func (s *AttachmentService) Owner(ctx context.Context, attachment *models.Attachment) (uint, error) {
	switch {
	case attachment.RequestID != nil:
		request, err := s.Store.Requests().GetByID(ctx, *attachment.RequestID)
		if err != nil {
			return 0, lookupErr(err, "Request not found")
		}
		return request.CitizenID, nil
	case attachment.ComplaintID != nil:
		complaint, err := s.Store.Complaints().GetByID(ctx, *attachment.ComplaintID)
		if err != nil {
			return 0, lookupErr(err, "Complaint not found")
		}
		return complaint.CitizenID, nil
	default:
		return 0, nil
	}
}

// Open returns the content of a stored attachment
func (s *AttachmentService) Open(ctx context.Context, attachment *models.Attachment) (io.ReadCloser, error) {
	reader, err := s.storage.Open(ctx, attachment.Path)
	if err != nil {
		s.logger.Warn("Stored file missing", zap.Uint("file_id", attachment.ID), zap.Error(err))
		return nil, apperr.NotFound("File not found on server")
	}
	return reader, nil
}

// Delete removes an attachment uploaded by accountID
func (s *AttachmentService) Delete(ctx context.Context, id, accountID uint) error {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if attachment.UploadedBy != accountID {
		return apperr.Forbidden("You can only delete files you uploaded")
	}

	if err := s.Store.Attachments().Delete(ctx, id); err != nil {
		return storeErr(err, "failed to delete attachment")
	}
	s.discard(ctx, attachment.Path)

	s.logger.Info("File deleted", zap.Uint("file_id", id))
	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

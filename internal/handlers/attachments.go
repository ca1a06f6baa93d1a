package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"municipality/internal/models"
	"municipality/internal/policy"
	"municipality/internal/service"
)

// UploadRequestAttachment attaches a multipart "file" to the caller's request
func (h *Handler) UploadRequestAttachment(c *gin.Context) {
	h.upload(c, h.Attachments.UploadForRequest)
}

// UploadComplaintAttachment attaches a multipart "file" to the caller's
// complaint
func (h *Handler) UploadComplaintAttachment(c *gin.Context) {
	h.upload(c, h.Attachments.UploadForComplaint)
}

type uploadFunc func(ctx context.Context, accountID, citizenID, id uint, upload service.Upload) (*models.Attachment, error)

func (h *Handler) upload(c *gin.Context, save uploadFunc) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.authorize(c, principal, policy.ActionCreate, policy.On(policy.ResourceAttachment, principal.CitizenID)) {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided", "details": err.Error()})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	attachment, err := save(c.Request.Context(), principal.AccountID, principal.CitizenID, id, service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "upload", policy.ResourceAttachment, attachment.ID, gin.H{"filename": attachment.OriginalFilename})
	c.JSON(http.StatusCreated, attachment)
}

// RequestAttachments lists the files of a request
func (h *Handler) RequestAttachments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	request, err := h.Requests.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.On(policy.ResourceAttachment, request.CitizenID)) {
		return
	}

	attachments, err := h.Attachments.ListForRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attachments)
}

// ComplaintAttachments lists the files of a complaint
func (h *Handler) ComplaintAttachments(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	complaint, err := h.Complaints.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.authorize(c, principal, policy.ActionList, policy.On(policy.ResourceAttachment, complaint.CitizenID)) {
		return
	}

	attachments, err := h.Attachments.ListForComplaint(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attachments)
}

// readableAttachment loads an attachment the caller may read
func (h *Handler) readableAttachment(c *gin.Context, principal policy.Principal, action policy.Action) (*models.Attachment, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	attachment, err := h.Attachments.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	owner, err := h.Attachments.Owner(c.Request.Context(), attachment)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if !h.authorize(c, principal, action, policy.On(policy.ResourceAttachment, owner)) {
		return nil, false
	}
	return attachment, true
}

// GetAttachment returns attachment metadata
func (h *Handler) GetAttachment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	attachment, ok := h.readableAttachment(c, principal, policy.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, attachment)
}

// DownloadAttachment streams the stored file
func (h *Handler) DownloadAttachment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	attachment, ok := h.readableAttachment(c, principal, policy.ActionRead)
	if !ok {
		return
	}

	content, err := h.Attachments.Open(c.Request.Context(), attachment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer content.Close()

	c.DataFromReader(http.StatusOK, attachment.Size, attachment.ContentType, content, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", attachment.OriginalFilename),
	})
}

// DeleteAttachment removes a file uploaded by the caller
func (h *Handler) DeleteAttachment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	attachment, ok := h.readableAttachment(c, principal, policy.ActionDelete)
	if !ok {
		return
	}

	if err := h.Attachments.Delete(c.Request.Context(), attachment.ID, principal.AccountID); err != nil {
		h.respondError(c, err)
		return
	}
	h.record(c, principal, "delete", policy.ResourceAttachment, attachment.ID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

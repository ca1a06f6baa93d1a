package service

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"municipality/internal/apperr"
	"municipality/internal/models"
)

func textUpload(name, content string) Upload {
	return Upload{
		FileName:    name,
		ContentType: "text/plain; charset=utf-8",
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	}
}

func TestAttachmentService_UploadAndDownload(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.submit(t, citizen.ID, models.RequestTypeBuildingPermit)

	attachment, err := f.attachments.UploadForRequest(f.ctx, *citizen.AccountID, citizen.ID, request.ID, textUpload("../plans.txt", "floor plan"))
	require.NoError(t, err)
	assert.Equal(t, "plans.txt", attachment.OriginalFilename)
	assert.Equal(t, "text/plain", attachment.ContentType)
	assert.Equal(t, int64(10), attachment.Size)
	assert.True(t, strings.HasSuffix(attachment.Filename, ".txt"))
	assert.WithinDuration(t, f.now, attachment.UploadDate, 0)

	owner, err := f.attachments.Owner(f.ctx, attachment)
	require.NoError(t, err)
	assert.Equal(t, citizen.ID, owner)

	listed, err := f.attachments.ListForRequest(f.ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	reader, err := f.attachments.Open(f.ctx, attachment)
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, reader.Close())
	require.NoError(t, err)
	assert.Equal(t, "floor plan", string(content))

	t.Run("OnlyUploaderDeletes", func(t *testing.T) {
		err := f.attachments.Delete(f.ctx, attachment.ID, *citizen.AccountID+100)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, f.attachments.Delete(f.ctx, attachment.ID, *citizen.AccountID))

		_, err := f.attachments.Get(f.ctx, attachment.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		_, err = f.attachments.Open(f.ctx, attachment)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "stored file is removed")
	})
}

func TestAttachmentService_UploadForComplaint(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	complaint := newComplaint(t, f, citizen.ID)

	upload := Upload{FileName: "photo.PNG", ContentType: "image/png", Size: 4, Content: bytes.NewReader([]byte{0x89, 'P', 'N', 'G'})}
	attachment, err := f.attachments.UploadForComplaint(f.ctx, *citizen.AccountID, citizen.ID, complaint.ID, upload)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(attachment.Filename, ".png"))

	listed, err := f.attachments.ListForComplaint(f.ctx, complaint.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestAttachmentService_Rejections(t *testing.T) {
	f := newFixture(t)
	owner := f.citizen(t, "NID-1", "Ana", "Silva")
	stranger := f.citizen(t, "NID-2", "Rui", "Costa")
	request := f.submit(t, owner.ID, models.RequestTypeOther)

	tests := []struct {
		name      string
		citizenID uint
		upload    Upload
		kind      apperr.Kind
	}{
		{"NotOwner", stranger.ID, textUpload("a.txt", "x"), apperr.KindNotFound},
		{"Extension", owner.ID, textUpload("run.exe", "x"), apperr.KindValidation},
		{"MIMEType", owner.ID, Upload{FileName: "a.pdf", ContentType: "application/zip", Content: strings.NewReader("x")}, apperr.KindValidation},
		{"DeclaredSize", owner.ID, Upload{FileName: "a.txt", ContentType: "text/plain", Size: 11 * 1024 * 1024, Content: strings.NewReader("x")}, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.attachments.UploadForRequest(f.ctx, *owner.AccountID, tt.citizenID, request.ID, tt.upload)
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}

	t.Run("ActualSizeExceedsLimit", func(t *testing.T) {
		body := bytes.Repeat([]byte("a"), 10*1024*1024+1)
		upload := Upload{FileName: "big.txt", ContentType: "text/plain", Content: bytes.NewReader(body)}
		_, err := f.attachments.UploadForRequest(f.ctx, *owner.AccountID, owner.ID, request.ID, upload)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, "File too large. Maximum size: 10 MB", apperr.MessageOf(err))

		listed, err := f.attachments.ListForRequest(f.ctx, request.ID)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}

func TestRequestService_DeleteRemovesAttachments(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	request := f.submit(t, citizen.ID, models.RequestTypeOther)
	kept := f.submit(t, citizen.ID, models.RequestTypeOther)

	attachment, err := f.attachments.UploadForRequest(f.ctx, *citizen.AccountID, citizen.ID, request.ID, textUpload("plans.txt", "floor plan"))
	require.NoError(t, err)
	other, err := f.attachments.UploadForRequest(f.ctx, *citizen.AccountID, citizen.ID, kept.ID, textUpload("deed.txt", "deed"))
	require.NoError(t, err)

	require.NoError(t, f.requests.Delete(f.ctx, request.ID, citizen.ID))

	_, err = f.store.Attachments().GetByID(f.ctx, attachment.ID)
	assert.Error(t, err, "attachment row is deleted with the request")
	_, err = f.files.Open(f.ctx, attachment.Path)
	assert.Error(t, err, "stored file is removed")

	reader, err := f.files.Open(f.ctx, other.Path)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
}

func TestComplaintService_DeleteRemovesAttachments(t *testing.T) {
	f := newFixture(t)
	citizen := f.citizen(t, "NID-1", "Ana", "Silva")
	complaint := newComplaint(t, f, citizen.ID)

	upload := Upload{FileName: "photo.png", ContentType: "image/png", Size: 4, Content: bytes.NewReader([]byte{0x89, 'P', 'N', 'G'})}
	attachment, err := f.attachments.UploadForComplaint(f.ctx, *citizen.AccountID, citizen.ID, complaint.ID, upload)
	require.NoError(t, err)

	require.NoError(t, f.complaints.Delete(f.ctx, complaint.ID, citizen.ID))

	listed, err := f.store.Attachments().ListByComplaint(f.ctx, complaint.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
	_, err = f.files.Open(f.ctx, attachment.Path)
	assert.Error(t, err, "stored file is removed")
}

package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/audit"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/config"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxDocumentSize = 10 << 20 // 10 MB

type DocumentResponse struct {
	ID          uint   `json:"id"`
	GroupID     uint   `json:"group_id"`
	Kind        string `json:"kind"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	UploadedBy  uint   `json:"uploaded_by"`
	CreatedAt   string `json:"created_at"`
}

func toDocumentResponse(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		GroupID:     d.GroupID,
		Kind:        string(d.Kind),
		FileName:    d.FileName,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		UploadedBy:  d.UploadedBy,
		CreatedAt:   d.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/v1/groups/:id/documents  (multipart: file, kind)
func UploadDocumentHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		if _, err := group.ActiveMembership(grp.ID, userID); err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return apperr.Validation("a 'file' form field is required")
		}
		if fh.Size > maxDocumentSize {
			return apperr.Validation("file exceeds the 10MB limit")
		}

		kind := models.DocumentKind(strings.ToUpper(c.FormValue("kind", string(models.DocOther))))
		switch kind {
		case models.DocConstitution, models.DocMinutes, models.DocReceipt, models.DocOther:
		default:
			return apperr.Validation("kind must be CONSTITUTION, MINUTES, RECEIPT or OTHER")
		}

		if err := os.MkdirAll(cfg.DocumentPath, 0o755); err != nil {
			return fmt.Errorf("create document dir: %w", err)
		}

		storageKey := uuid.NewString() + filepath.Ext(fh.Filename)
		if err := c.SaveFile(fh, filepath.Join(cfg.DocumentPath, storageKey)); err != nil {
			return fmt.Errorf("save file: %w", err)
		}

		doc := models.Document{
			GroupID:     grp.ID,
			Kind:        kind,
			FileName:    fh.Filename,
			StorageKey:  storageKey,
			ContentType: fh.Header.Get("Content-Type"),
			SizeBytes:   fh.Size,
			UploadedBy:  userID,
		}
		if err := database.DB.Create(&doc).Error; err != nil {
			return fmt.Errorf("create document record: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "document",
			EntityID:    doc.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Document '%s' uploaded", doc.FileName),
			After:       doc,
			RequestID:   audit.RequestID(c),
		})

		return c.Status(fiber.StatusCreated).JSON(toDocumentResponse(&doc))
	}
}

// GET /api/v1/groups/:id/documents
func ListDocumentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		if _, err := group.ActiveMembership(grp.ID, userID); err != nil {
			return err
		}

		var docs []models.Document
		if err := database.DB.Where("group_id = ?", grp.ID).Order("id desc").Find(&docs).Error; err != nil {
			return fmt.Errorf("list documents: %w", err)
		}

		res := make([]DocumentResponse, 0, len(docs))
		for i := range docs {
			res = append(res, toDocumentResponse(&docs[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/v1/groups/:id/documents/:docId/download
func DownloadDocumentHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var doc models.Document
		if err := database.DB.First(&doc, "id = ? AND group_id = ?", c.Params("docId"), c.Params("id")).Error; err != nil {
			return apperr.NotFound("document not found")
		}
		if _, err := group.ActiveMembership(doc.GroupID, userID); err != nil {
			return err
		}

		return c.Download(filepath.Join(cfg.DocumentPath, doc.StorageKey), doc.FileName)
	}
}

// DELETE /api/v1/groups/:id/documents/:docId  (chairperson only)
//
// Soft delete of the record; the file stays on disk for audit purposes.
func DeleteDocumentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var doc models.Document
		if err := database.DB.First(&doc, "id = ? AND group_id = ?", c.Params("docId"), c.Params("id")).Error; err != nil {
			return apperr.NotFound("document not found")
		}
		if _, err := group.RequireOfficer(doc.GroupID, userID, models.RoleChairperson); err != nil {
			return err
		}

		if err := database.DB.Delete(&doc).Error; err != nil {
			return fmt.Errorf("delete document: %w", err)
		}

		gid := doc.GroupID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "document",
			EntityID:    doc.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Document '%s' deleted", doc.FileName),
			Before:      doc,
			RequestID:   audit.RequestID(c),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

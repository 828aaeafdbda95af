package audit

import (
	"encoding/json"
	"fmt"

	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/logger"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestID reads the requestid middleware's value for LogOptions.RequestID.
func RequestID(c *fiber.Ctx) string {
	if rid, ok := c.Locals("requestid").(string); ok {
		return rid
	}
	return ""
}

type LogOptions struct {
	GroupID     *uint
	ActorID     uint
	ActorName   string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
	RequestID   string
}

func WriteLog(opts LogOptions) error {
	// jsonb columns reject the empty string, so absent snapshots are "null"
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		GroupID:     opts.GroupID,
		ActorID:     opts.ActorID,
		ActorName:   opts.ActorName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
		Outcome:     "success",
		RequestID:   opts.RequestID,
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// MustLog is WriteLog for call sites where audit is best-effort: a failed
// insert is logged but never fails the triggering operation.
func MustLog(opts LogOptions) {
	if err := WriteLog(opts); err != nil {
		logger.L.Warn("audit log write failed",
			zap.String("entity_type", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID),
			zap.Error(err))
	}
}

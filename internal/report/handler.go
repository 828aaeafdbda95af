package report

import (
	"fmt"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/grocery"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// GET /api/v1/groups/:id/reports/contributions.xlsx  (chairperson or treasurer)
func ContributionStatementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		if _, err := group.RequireOfficer(grp.ID, userID, models.RoleChairperson, models.RoleTreasurer); err != nil {
			return err
		}

		var contributions []models.Contribution
		if err := database.DB.Preload("Member.User").
			Where("group_id = ?", grp.ID).
			Order("period_date asc, id asc").
			Find(&contributions).Error; err != nil {
			return fmt.Errorf("load contributions: %w", err)
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Contributions"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Date", "Period", "Member", "Status", fmt.Sprintf("Amount (%s)", grp.Currency), "Note"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		total := decimal.Zero
		approved := decimal.Zero
		for i, cn := range contributions {
			row := i + 2
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), cn.CreatedAt.Format("2006-01-02"))
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), cn.PeriodDate.Format("2006-01-02"))
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), cn.Member.User.Name)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), string(cn.Status))
			amount, _ := cn.Amount.Float64()
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), amount)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), cn.Note)

			total = total.Add(cn.Amount)
			if cn.Status == models.ContributionApproved {
				approved = approved.Add(cn.Amount)
			}
		}

		footer := len(contributions) + 3
		f.SetCellValue(sheet, fmt.Sprintf("D%d", footer), "Total recorded")
		totalF, _ := total.Float64()
		f.SetCellValue(sheet, fmt.Sprintf("E%d", footer), totalF)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", footer+1), "Total approved")
		approvedF, _ := approved.Float64()
		f.SetCellValue(sheet, fmt.Sprintf("E%d", footer+1), approvedF)

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="contributions-%s.xlsx"`, grp.Reference))
		return c.Send(buf.Bytes())
	}
}

// GET /api/v1/groups/:id/reports/summary
func GroupSummaryHandler() fiber.Handler {
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

		type statusRow struct {
			Status string
			Total  decimal.Decimal
			Count  int64
		}
		var byStatus []statusRow
		if err := database.DB.Model(&models.Contribution{}).
			Select("status, SUM(amount) as total, COUNT(*) as count").
			Where("group_id = ?", grp.ID).
			Group("status").
			Scan(&byStatus).Error; err != nil {
			return fmt.Errorf("sum contributions: %w", err)
		}

		var balance decimal.Decimal
		var entries []models.LedgerEntry
		if err := database.DB.Where("group_id = ?", grp.ID).Find(&entries).Error; err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		for _, e := range entries {
			balance = balance.Add(e.Amount)
		}

		contributions := fiber.Map{}
		for _, r := range byStatus {
			contributions[r.Status] = fiber.Map{"total": r.Total, "count": r.Count}
		}

		var memberCount int64
		database.DB.Model(&models.GroupMember{}).
			Where("group_id = ? AND status = ?", grp.ID, models.MemberStatusActive).
			Count(&memberCount)

		stockValue, err := grocery.StockValue(database.DB, grp.ID)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"group_id":      grp.ID,
			"currency":      grp.Currency,
			"member_count":  memberCount,
			"contributions": contributions,
			"balance":       balance,
			"stock_value":   stockValue,
		})
	}
}

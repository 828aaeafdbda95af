package contribution_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kumbulanit/stockvelOS-sub001/internal/contribution"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContribApp(user *models.User) *fiber.App {
	app := testutil.NewApp()
	app.Use(testutil.AuthAs(user))
	app.Post("/groups/:id/contributions", contribution.CreateContributionHandler())
	app.Get("/groups/:id/contributions", contribution.ListContributionsHandler())
	app.Post("/groups/:id/contributions/:contribId/approve", contribution.ApproveContributionHandler())
	app.Post("/groups/:id/contributions/:contribId/reject", contribution.RejectContributionHandler())
	app.Post("/groups/:id/contributions/:contribId/cancel", contribution.CancelContributionHandler())
	return app
}

func jsonReq(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func seedContribution(t *testing.T) (*models.Group, *models.User, *models.User, *models.Contribution) {
	t.Helper()
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	member := testutil.CreateUser(t, "Sipho", "sipho@example.com")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")
	membership := testutil.AddMember(t, grp, member, models.RoleOrdinary)

	app := newContribApp(member)
	resp, err := app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/contributions", grp.ID),
		map[string]any{"amount": "500.00", "period_date": "2026-08-01"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cn models.Contribution
	require.NoError(t, database.DB.Where("member_id = ?", membership.ID).First(&cn).Error)
	require.Equal(t, models.ContributionPending, cn.Status)
	return grp, chair, member, &cn
}

func TestApproveContributionPostsLedgerEntry(t *testing.T) {
	testutil.SetupDB(t)
	grp, chair, _, cn := seedContribution(t)

	app := newContribApp(chair)
	resp, err := app.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/approve", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Contribution
	require.NoError(t, database.DB.First(&reloaded, cn.ID).Error)
	assert.Equal(t, models.ContributionApproved, reloaded.Status)
	require.NotNil(t, reloaded.DecidedAt)

	var entry models.LedgerEntry
	require.NoError(t, database.DB.Where("group_id = ?", grp.ID).First(&entry).Error)
	assert.Equal(t, models.LedgerContribution, entry.Type)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(500)))

	// the approval produced exactly one audit entry
	var count int64
	database.DB.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", "contribution", cn.ID, models.AuditActionApprove).
		Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestDecidedContributionRejectsFurtherTransitions(t *testing.T) {
	testutil.SetupDB(t)
	grp, chair, member, cn := seedContribution(t)

	chairApp := newContribApp(chair)
	resp, err := chairApp.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/approve", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// APPROVED is terminal: cancel and reject both refuse
	memberApp := newContribApp(member)
	resp, err = memberApp.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/cancel", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INVALID_TRANSITION", body["code"])

	resp, err = chairApp.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/reject", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestApproveNotifiesContributingMember(t *testing.T) {
	testutil.SetupDB(t)
	grp, chair, member, cn := seedContribution(t)

	app := newContribApp(chair)
	resp, err := app.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/approve", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var note models.Notification
	require.NoError(t, database.DB.Where("type = ?", models.NotifyContributionDecision).First(&note).Error)
	assert.Equal(t, member.ID, note.UserID)
	require.NotNil(t, note.GroupID)
	assert.Equal(t, grp.ID, *note.GroupID)
}

func TestChairpersonCannotCancelOthersContribution(t *testing.T) {
	testutil.SetupDB(t)
	grp, chair, _, cn := seedContribution(t)

	chairApp := newContribApp(chair)
	resp, err := chairApp.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/cancel", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	treasurer := testutil.CreateUser(t, "Lerato", "lerato@example.com")
	testutil.AddMember(t, grp, treasurer, models.RoleTreasurer)
	resp, err = newContribApp(treasurer).Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/cancel", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Contribution
	require.NoError(t, database.DB.First(&reloaded, cn.ID).Error)
	assert.Equal(t, models.ContributionCancelled, reloaded.Status)
}

func TestOrdinaryMemberCannotApprove(t *testing.T) {
	testutil.SetupDB(t)
	grp, _, member, cn := seedContribution(t)

	app := newContribApp(member)
	resp, err := app.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/approve", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMemberCanCancelOwnPendingContribution(t *testing.T) {
	testutil.SetupDB(t)
	grp, _, member, cn := seedContribution(t)

	app := newContribApp(member)
	resp, err := app.Test(jsonReq(http.MethodPost,
		fmt.Sprintf("/groups/%d/contributions/%d/cancel", grp.ID, cn.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Contribution
	require.NoError(t, database.DB.First(&reloaded, cn.ID).Error)
	assert.Equal(t, models.ContributionCancelled, reloaded.Status)

	// no ledger entry for a cancellation
	var count int64
	database.DB.Model(&models.LedgerEntry{}).Where("group_id = ?", grp.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestRejectInvalidContributionInput(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")
	app := newContribApp(chair)

	// zero amount
	resp, err := app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/contributions", grp.ID),
		map[string]any{"amount": "0", "period_date": "2026-08-01"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// bad date
	resp, err = app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/contributions", grp.ID),
		map[string]any{"amount": "100", "period_date": "not-a-date"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNonMemberCannotContribute(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	outsider := testutil.CreateUser(t, "Zanele", "zanele@example.com")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")

	app := newContribApp(outsider)
	resp, err := app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/contributions", grp.ID),
		map[string]any{"amount": "500", "period_date": "2026-08-01"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

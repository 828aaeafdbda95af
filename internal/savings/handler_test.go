package savings_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/savings"
	"github.com/kumbulanit/stockvelOS-sub001/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSavingsApp(user *models.User) *fiber.App {
	app := testutil.NewApp()
	app.Use(testutil.AuthAs(user))
	app.Put("/groups/:id/savings-rule", savings.SaveRuleHandler())
	app.Get("/groups/:id/savings-rule", savings.GetRuleHandler())
	app.Post("/groups/:id/ledger", savings.CreateLedgerEntryHandler())
	app.Get("/groups/:id/ledger", savings.ListLedgerHandler())
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

func TestSaveRuleUpserts(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")
	app := newSavingsApp(chair)

	resp, err := app.Test(jsonReq(http.MethodPut, fmt.Sprintf("/groups/%d/savings-rule", grp.ID),
		map[string]any{"target_amount": "500", "frequency": "MONTHLY", "penalty_amount": "50"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// second save updates the same row
	resp, err = app.Test(jsonReq(http.MethodPut, fmt.Sprintf("/groups/%d/savings-rule", grp.ID),
		map[string]any{"target_amount": "600", "frequency": "WEEKLY", "penalty_amount": "50"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	database.DB.Model(&models.SavingsRule{}).Where("group_id = ?", grp.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	var rule models.SavingsRule
	require.NoError(t, database.DB.Where("group_id = ?", grp.ID).First(&rule).Error)
	assert.True(t, rule.TargetAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, models.FrequencyWeekly, rule.Frequency)
}

func TestPayoutStoredNegativeAndBalanceRuns(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	grp, membership := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")
	app := newSavingsApp(chair)

	// credit the pool directly, the way an approved contribution would
	require.NoError(t, database.DB.Create(&models.LedgerEntry{
		GroupID:    grp.ID,
		MemberID:   &membership.ID,
		Type:       models.LedgerContribution,
		Amount:     decimal.NewFromInt(1000),
		RecordedBy: chair.ID,
	}).Error)

	resp, err := app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/ledger", grp.ID),
		map[string]any{"type": "PAYOUT", "amount": "400", "member_id": membership.ID, "description": "December payout"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payout models.LedgerEntry
	require.NoError(t, database.DB.Where("type = ?", models.LedgerPayout).First(&payout).Error)
	assert.True(t, payout.Amount.Equal(decimal.NewFromInt(-400)), "payouts debit the pool")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/groups/%d/ledger", grp.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Balance decimal.Decimal `json:"balance"`
		Entries []struct {
			Balance decimal.Decimal `json:"balance"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Balance.Equal(decimal.NewFromInt(600)))
	require.Len(t, out.Entries, 2)
	assert.True(t, out.Entries[0].Balance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, out.Entries[1].Balance.Equal(decimal.NewFromInt(600)))
}

func TestLedgerEntryRejectsForeignMember(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	other := testutil.CreateUser(t, "Sipho", "sipho@example.com")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")
	_, otherMembership := testutil.CreateGroup(t, other, models.GroupTypeSavings, "Other Circle")

	app := newSavingsApp(chair)
	resp, err := app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/ledger", grp.ID),
		map[string]any{"type": "PENALTY", "amount": "50", "member_id": otherMembership.ID}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrdinaryMemberCannotPostLedgerEntries(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	member := testutil.CreateUser(t, "Sipho", "sipho@example.com")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")
	testutil.AddMember(t, grp, member, models.RoleOrdinary)

	app := newSavingsApp(member)
	resp, err := app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/ledger", grp.ID),
		map[string]any{"type": "ADJUSTMENT", "amount": "10"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
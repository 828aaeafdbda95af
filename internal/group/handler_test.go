package group_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroupApp(user *models.User) *fiber.App {
	app := testutil.NewApp()
	app.Use(testutil.AuthAs(user))
	app.Post("/groups", group.CreateGroupHandler())
	app.Get("/groups", group.ListGroupsHandler())
	app.Get("/groups/:id", group.GetGroupHandler())
	app.Put("/groups/:id", group.UpdateGroupHandler())
	app.Delete("/groups/:id", group.RemoveGroupHandler())
	app.Post("/groups/:id/members", group.AddMemberHandler())
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

func createGroupBody(name, typ string) map[string]any {
	return map[string]any{
		"name":                name,
		"type":                typ,
		"contribution_amount": "500.00",
		"frequency":           "MONTHLY",
	}
}

func TestCreateGroup(t *testing.T) {
	testutil.SetupDB(t)
	user := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	app := newGroupApp(user)

	resp, err := app.Test(jsonReq(http.MethodPost, "/groups", createGroupBody("Ubuntu Savers", "SAVINGS")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Ubuntu Savers", out["name"])
	assert.Equal(t, "ACTIVE", out["status"])
	assert.Equal(t, "ZAR", out["currency"])
	assert.NotEmpty(t, out["reference"])

	// creator becomes chairperson
	var member models.GroupMember
	require.NoError(t, database.DB.Where("user_id = ?", user.ID).First(&member).Error)
	assert.Equal(t, models.RoleChairperson, member.Role)

	// exactly one audit entry, with matching actor and resource
	var logs []models.AuditLog
	require.NoError(t, database.DB.Where("entity_type = ?", "group").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, user.ID, logs[0].ActorID)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)
}

func TestChairUniquenessAcrossSavingsGroups(t *testing.T) {
	testutil.SetupDB(t)
	user := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	app := newGroupApp(user)

	resp, err := app.Test(jsonReq(http.MethodPost, "/groups", createGroupBody("First Savers", "SAVINGS")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// a second active SAVINGS group is refused
	resp, err = app.Test(jsonReq(http.MethodPost, "/groups", createGroupBody("Second Savers", "SAVINGS")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "CHAIR_CONFLICT", body["code"])

	// a grocery group is fine
	resp, err = app.Test(jsonReq(http.MethodPost, "/groups", createGroupBody("Grocery Club", "GROCERY")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestChairUniquenessWhenAddingChairperson(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	other := testutil.CreateUser(t, "Sipho", "sipho@example.com")

	// Sipho already chairs his own savings group
	testutil.CreateGroup(t, other, models.GroupTypeSavings, "Siphos Circle")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Thandis Circle")

	app := newGroupApp(chair)
	resp, err := app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/members", grp.ID),
		map[string]any{"email": "sipho@example.com", "role": "CHAIRPERSON"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// as an ordinary member he is welcome
	resp, err = app.Test(jsonReq(http.MethodPost, fmt.Sprintf("/groups/%d/members", grp.ID),
		map[string]any{"email": "sipho@example.com", "role": "MEMBER"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRemoveGroupSoftDeletesAndDissolves(t *testing.T) {
	testutil.SetupDB(t)
	user := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	grp, _ := testutil.CreateGroup(t, user, models.GroupTypeSavings, "Savers")
	app := newGroupApp(user)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/groups/%d", grp.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// row survives with DISSOLVED status and a deletion timestamp
	var raw models.Group
	require.NoError(t, database.DB.Unscoped().First(&raw, grp.ID).Error)
	assert.Equal(t, models.GroupStatusDissolved, raw.Status)
	assert.True(t, raw.DeletedAt.Valid)

	// second delete is a 404, idempotent from the caller's view
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/groups/%d", grp.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSoftDeletedGroupsExcludedFromReads(t *testing.T) {
	testutil.SetupDB(t)
	user := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	grp, _ := testutil.CreateGroup(t, user, models.GroupTypeSavings, "Savers")
	keep, _ := testutil.CreateGroup(t, user, models.GroupTypeGrocery, "Grocery Club")
	_ = keep

	require.NoError(t, database.DB.Model(&models.Group{}).Where("id = ?", grp.ID).
		Update("status", models.GroupStatusDissolved).Error)
	require.NoError(t, database.DB.Delete(&models.Group{}, grp.ID).Error)

	app := newGroupApp(user)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/groups", nil))
	require.NoError(t, err)
	var list struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Grocery Club", list.Items[0]["name"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/groups/%d", grp.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateGroupRequiresChair(t *testing.T) {
	testutil.SetupDB(t)
	chair := testutil.CreateUser(t, "Thandi", "thandi@example.com")
	member := testutil.CreateUser(t, "Sipho", "sipho@example.com")
	grp, _ := testutil.CreateGroup(t, chair, models.GroupTypeSavings, "Savers")
	testutil.AddMember(t, grp, member, models.RoleOrdinary)

	memberApp := newGroupApp(member)
	resp, err := memberApp.Test(jsonReq(http.MethodPut, fmt.Sprintf("/groups/%d", grp.ID),
		map[string]any{"name": "Hijacked"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	chairApp := newGroupApp(chair)
	resp, err = chairApp.Test(jsonReq(http.MethodPut, fmt.Sprintf("/groups/%d", grp.ID),
		map[string]any{"name": "Renamed Savers"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Renamed Savers", out["name"])
}

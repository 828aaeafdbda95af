// Package testutil wires an in-memory database and a fiber app for handler
// tests.
package testutil

import (
	"testing"
	"time"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/logger"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SetupDB points database.DB at a fresh in-memory SQLite database.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.InitTest()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	database.DB = db
	return db
}

// NewApp builds a fiber app with the production error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
}

// AuthAs fakes the JWT middleware: it injects the given user into request
// locals the way auth.JWTMiddleware would.
func AuthAs(user *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, user.ID)
		c.Locals(auth.CtxUserNameKey, user.Name)
		c.Locals(auth.CtxUserRoleKey, user.Role)
		return c.Next()
	}
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         models.RoleMember,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

// CreateGroup inserts an active group with the given chairperson and returns
// both the group and the chair's membership.
func CreateGroup(t *testing.T, chair *models.User, typ models.GroupType, name string) (*models.Group, *models.GroupMember) {
	t.Helper()
	grp := models.Group{
		Reference:          uuid.NewString(),
		Name:               name,
		Type:               typ,
		Status:             models.GroupStatusActive,
		Currency:           "ZAR",
		ContributionAmount: decimal.NewFromInt(500),
		Frequency:          models.FrequencyMonthly,
		CreatedBy:          chair.ID,
	}
	if err := database.DB.Create(&grp).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	member := models.GroupMember{
		GroupID:  grp.ID,
		UserID:   chair.ID,
		Role:     models.RoleChairperson,
		Status:   models.MemberStatusActive,
		JoinedAt: time.Now(),
	}
	if err := database.DB.Create(&member).Error; err != nil {
		t.Fatalf("create chair membership: %v", err)
	}
	return &grp, &member
}

// AddMember inserts an active membership with the given role.
func AddMember(t *testing.T, grp *models.Group, user *models.User, role models.MemberRole) *models.GroupMember {
	t.Helper()
	member := models.GroupMember{
		GroupID:  grp.ID,
		UserID:   user.ID,
		Role:     role,
		Status:   models.MemberStatusActive,
		JoinedAt: time.Now(),
	}
	if err := database.DB.Create(&member).Error; err != nil {
		t.Fatalf("add member: %v", err)
	}
	return &member
}

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/config"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/validate"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func RegisterHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Name = strings.TrimSpace(body.Name)
		if err := validate.Struct(body); err != nil {
			return err
		}

		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
		if count > 0 {
			return apperr.Conflict(apperr.CodeConflict, "an account with this email already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			Phone:        strings.TrimSpace(body.Phone),
			PasswordHash: string(hash),
			Role:         models.RoleMember,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if err := validate.Struct(body); err != nil {
			return err
		}

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return apperr.Authentication("incorrect email or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return apperr.Authentication("incorrect email or password")
		}

		pair, err := issueTokens(cfg, &user)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

// RefreshHandler rotates a refresh token: the presented token is revoked and a
// fresh pair is issued. A revoked or expired token always yields 401.
func RefreshHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RefreshRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}

		session, err := lookupSession(body.RefreshToken)
		if err != nil {
			return apperr.Authentication("invalid refresh token")
		}
		if session.RevokedAt != nil || time.Now().After(session.ExpiresAt) {
			return apperr.Authentication("refresh token expired or revoked")
		}

		var user models.User
		if err := database.DB.First(&user, session.UserID).Error; err != nil {
			return apperr.Authentication("invalid refresh token")
		}

		now := time.Now()
		if err := database.DB.Model(session).Update("revoked_at", &now).Error; err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}

		pair, err := issueTokens(cfg, &user)
		if err != nil {
			return err
		}
		return c.JSON(pair)
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := CurrentUser(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			return apperr.NotFound("user not found")
		}

		var memberships []models.GroupMember
		database.DB.Preload("Group").
			Where("user_id = ? AND status = ?", userID, models.MemberStatusActive).
			Find(&memberships)

		groups := make([]fiber.Map, 0, len(memberships))
		for _, m := range memberships {
			groups = append(groups, fiber.Map{
				"group_id": m.GroupID,
				"name":     m.Group.Name,
				"type":     m.Group.Type,
				"role":     m.Role,
			})
		}

		return c.JSON(fiber.Map{
			"id":     user.ID,
			"name":   user.Name,
			"email":  user.Email,
			"phone":  user.Phone,
			"role":   user.Role,
			"groups": groups,
		})
	}
}

// GET /api/v1/admin/users, behind RequireRole(platform_admin).
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.User{})
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("lower(name) LIKE ? OR lower(email) LIKE ?", like, like)
		}

		var users []models.User
		if err := dbq.Order("id asc").Limit(200).Find(&users).Error; err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		res := make([]fiber.Map, 0, len(users))
		for _, u := range users {
			res = append(res, fiber.Map{
				"id":         u.ID,
				"name":       u.Name,
				"email":      u.Email,
				"phone":      u.Phone,
				"role":       u.Role,
				"created_at": u.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}

// Refresh tokens are "<session id>.<secret>"; only a bcrypt hash of the secret
// is stored, so a leaked database cannot mint valid tokens.
func issueTokens(cfg *config.Config, user *models.User) (*tokenPair, error) {
	access, err := GenerateToken(cfg.JWTSecret, user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash refresh secret: %w", err)
	}

	ttl, err := time.ParseDuration(cfg.RefreshTokenTTL)
	if err != nil {
		ttl = 30 * 24 * time.Hour
	}

	session := models.RefreshSession{
		UserID:    user.ID,
		TokenHash: string(hash),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := database.DB.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create refresh session: %w", err)
	}

	return &tokenPair{
		AccessToken:  access,
		RefreshToken: fmt.Sprintf("%d.%s", session.ID, secret),
	}, nil
}

func lookupSession(token string) (*models.RefreshSession, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed refresh token")
	}

	var session models.RefreshSession
	if err := database.DB.First(&session, "id = ?", parts[0]).Error; err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(session.TokenHash), []byte(parts[1])); err != nil {
		return nil, fmt.Errorf("refresh token mismatch")
	}
	return &session, nil
}

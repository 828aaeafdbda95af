package group

import (
	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActiveMembership resolves a user's active membership in a group.
func ActiveMembership(groupID, userID uint) (*models.GroupMember, error) {
	var m models.GroupMember
	err := database.DB.Where(
		"group_id = ? AND user_id = ? AND status = ?",
		groupID, userID, models.MemberStatusActive,
	).First(&m).Error
	if err != nil {
		return nil, apperr.Forbidden("you are not an active member of this group")
	}
	return &m, nil
}

// RequireOfficer resolves the caller's membership and checks it against the
// allowed roles (chairperson, treasurer, ...).
func RequireOfficer(groupID, userID uint, roles ...models.MemberRole) (*models.GroupMember, error) {
	m, err := ActiveMembership(groupID, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if m.Role == r {
			return m, nil
		}
	}
	return nil, apperr.Forbidden("this operation requires a group officer role")
}

// LockForUpdate adds row locking on dialects that support it. SQLite (tests)
// has no FOR UPDATE; its writes are serialized anyway.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ChairsActiveSavingsGroup reports whether the user currently holds CHAIRPERSON
// on any active SAVINGS-type group, optionally excluding one group. Runs on the
// supplied tx so callers can hold the check and the subsequent write in one
// transaction.
func ChairsActiveSavingsGroup(tx *gorm.DB, userID uint, excludeGroupID uint) (bool, error) {
	// lock the user row first: two concurrent checks for the same user would
	// otherwise both see no chairship and both proceed
	var user models.User
	if err := LockForUpdate(tx).First(&user, userID).Error; err != nil {
		return false, err
	}

	q := tx.Model(&models.GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Where("group_members.user_id = ?", userID).
		Where("group_members.role = ?", models.RoleChairperson).
		Where("group_members.status = ?", models.MemberStatusActive).
		Where("groups.type = ?", models.GroupTypeSavings).
		Where("groups.status = ?", models.GroupStatusActive).
		Where("groups.deleted_at IS NULL")
	if excludeGroupID != 0 {
		q = q.Where("group_members.group_id <> ?", excludeGroupID)
	}
	var rows []models.GroupMember
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

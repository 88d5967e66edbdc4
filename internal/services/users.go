package services

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type RegisterInput struct {
	Username  string `form:"username" validate:"required,min=3,max=150"`
	Email     string `form:"email" validate:"required,email"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Password  string `form:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

// Register creates an unapproved, non-staff account.
func Register(gdb *gorm.DB, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := CheckStruct(in); err != nil {
		return models.User{}, err
	}
	u := models.User{
		Username:   in.Username,
		Email:      in.Email,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		IsActive:   true,
		DateJoined: timeNow().UTC(),
	}
	if err := u.SetPassword(in.Password); err != nil {
		return models.User{}, errors.Wrap(err, "hash password")
	}
	if err := gdb.Create(&u).Error; err != nil {
		if isUnique(err, "username") {
			return models.User{}, NewValidationError(ErrDuplicate, FieldError{Field: "username", Error: "a user with that username already exists"})
		}
		return models.User{}, err
	}
	return u, nil
}

// CreateSuperuser makes an approved staff+superuser account (CLI bootstrap).
func CreateSuperuser(gdb *gorm.DB, username, email, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return models.User{}, errors.New("username is required and password must be at least 8 characters")
	}
	u := models.User{
		Username:    username,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		IsStaff:     true,
		IsSuperuser: true,
		IsActive:    true,
		DateJoined:  timeNow().UTC(),
	}
	if err := u.SetPassword(password); err != nil {
		return models.User{}, errors.Wrap(err, "hash password")
	}
	if err := gdb.Create(&u).Error; err != nil {
		if isUnique(err, "username") {
			return models.User{}, errors.Errorf("user %q already exists", username)
		}
		return models.User{}, err
	}
	return u, nil
}

// Authenticate checks credentials and stamps last_login. Unknown users,
// wrong passwords and deactivated accounts all yield ErrInvalidCredentials.
func Authenticate(gdb *gorm.DB, username, password string) (models.User, error) {
	var u models.User
	err := gdb.Preload("Profile").Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !u.IsActive || !u.CheckPassword(password) {
		return models.User{}, ErrInvalidCredentials
	}
	now := timeNow().UTC()
	u.LastLogin = &now
	if err := gdb.Model(&u).UpdateColumn("last_login", now).Error; err != nil {
		return models.User{}, err
	}
	return u, nil
}

// IsApproved reports whether u may pass the approval gate.
func IsApproved(u models.User) bool {
	if u.IsElevated() {
		return true
	}
	return u.Profile != nil && u.Profile.IsApproved
}

func GetUser(gdb *gorm.DB, id uint) (models.User, error) {
	var u models.User
	err := gdb.Preload("Profile").Preload("Profile.ApprovedBy").First(&u, id).Error
	return u, notFound(err)
}

type UserCounts struct {
	Total, Pending, Approved int64
}

// ListUsers filters by approval state ("pending", "approved", anything else = all).
func ListUsers(gdb *gorm.DB, filter string) ([]models.User, UserCounts, error) {
	var counts UserCounts
	base := gdb.Model(&models.UserProfile{})
	if err := base.Session(&gorm.Session{}).Count(&counts.Total).Error; err != nil {
		return nil, counts, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_approved = ?", true).Count(&counts.Approved).Error; err != nil {
		return nil, counts, err
	}
	counts.Pending = counts.Total - counts.Approved

	q := gdb.Model(&models.User{}).Joins("JOIN user_profiles ON user_profiles.user_id = users.id")
	switch filter {
	case "pending":
		q = q.Where("user_profiles.is_approved = ?", false)
	case "approved":
		q = q.Where("user_profiles.is_approved = ?", true)
	}
	var out []models.User
	err := q.Preload("Profile").Preload("Profile.ApprovedBy").
		Order("users.date_joined desc, users.id desc").Find(&out).Error
	return out, counts, err
}

// Approve marks a profile approved by approverID. changed is false when it
// already was.
func Approve(gdb *gorm.DB, userID, approverID uint) (u models.User, changed bool, err error) {
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if u, err = GetUser(tx, userID); err != nil {
			return err
		}
		if u.Profile == nil || u.Profile.IsApproved {
			return nil
		}
		now := timeNow().UTC()
		changed = true
		return tx.Model(u.Profile).Updates(map[string]any{
			"is_approved":    true,
			"approved_by_id": approverID,
			"approved_at":    now,
		}).Error
	})
	return u, changed, err
}

// Unapprove clears approval and its audit fields.
func Unapprove(gdb *gorm.DB, userID uint) (u models.User, changed bool, err error) {
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if u, err = GetUser(tx, userID); err != nil {
			return err
		}
		if u.Profile == nil || !u.Profile.IsApproved {
			return nil
		}
		changed = true
		return clearApproval(tx.Model(&models.UserProfile{}).Where("id = ?", u.Profile.ID)).Error
	})
	return u, changed, err
}

func clearApproval(q *gorm.DB) *gorm.DB {
	return q.Updates(map[string]any{
		"is_approved":    false,
		"approved_by_id": nil,
		"approved_at":    nil,
	})
}

// BulkApprove approves every still-pending profile among userIDs and returns how many changed.
func BulkApprove(gdb *gorm.DB, userIDs []uint, approverID uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := gdb.Model(&models.UserProfile{}).
		Where("user_id IN ? AND is_approved = ?", userIDs, false).
		Updates(map[string]any{
			"is_approved":    true,
			"approved_by_id": approverID,
			"approved_at":    timeNow().UTC(),
		})
	return res.RowsAffected, res.Error
}

// BulkUnapprove clears approval on the selected profiles. Every selected
// profile counts, whatever its previous state.
func BulkUnapprove(gdb *gorm.DB, userIDs []uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := clearApproval(gdb.Model(&models.UserProfile{}).Where("user_id IN ?", userIDs))
	return res.RowsAffected, res.Error
}

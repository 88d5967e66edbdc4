package services

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/models"
)

type MemberInput struct {
	Name                     string     `form:"name" validate:"required,max=200"`
	DateOfBirth              *time.Time `form:"date_of_birth"`
	Gender                   string     `form:"gender" validate:"omitempty,gender"`
	Phone                    string     `form:"phone" validate:"required,phone"`
	Email                    string     `form:"email" validate:"required,email"`
	Address                  string     `form:"address" validate:"required"`
	FatherName               string     `form:"father_name" validate:"required,max=200"`
	GrandfatherName          string     `form:"grandfather_name" validate:"max=200"`
	SpouseName               string     `form:"spouse_name" validate:"max=200"`
	CitizenshipNumber        string     `form:"citizenship_number" validate:"required,max=50"`
	CitizenshipIssueDate     *time.Time `form:"citizenship_issue_date"`
	CitizenshipIssueDistrict string     `form:"citizenship_issue_district" validate:"max=100"`
	MembershipType           string     `form:"membership_type" validate:"required,membership_type"`
	PaymentFrequency         string     `form:"payment_frequency" validate:"required,payment_frequency"`
	MembershipNumber         string     `form:"membership_number" validate:"max=50"` // blank = allocate
	JoinDate                 time.Time  `form:"join_date" validate:"required"`
	IsActive                 bool       `form:"is_active"`
}

type ChildInput struct {
	ID          uint
	Name        string     `form:"child_name" validate:"required,max=200"`
	DateOfBirth *time.Time `form:"child_dob"`
	Gender      string     `form:"child_gender" validate:"omitempty,gender"`
}

// MemberFilter drives the member list and its CSV export.
type MemberFilter struct {
	Q      string
	Type   string
	Status string // "active" | "inactive" | ""
}

func (in MemberInput) apply(m *models.Member) {
	m.Name = strings.TrimSpace(in.Name)
	m.DateOfBirth = in.DateOfBirth
	m.Gender = in.Gender
	m.Phone = in.Phone
	m.Email = in.Email
	m.Address = strings.TrimSpace(in.Address)
	m.FatherName = strings.TrimSpace(in.FatherName)
	m.GrandfatherName = strings.TrimSpace(in.GrandfatherName)
	m.SpouseName = strings.TrimSpace(in.SpouseName)
	m.CitizenshipNumber = strings.TrimSpace(in.CitizenshipNumber)
	m.CitizenshipIssueDate = in.CitizenshipIssueDate
	m.CitizenshipIssueDistrict = strings.TrimSpace(in.CitizenshipIssueDistrict)
	m.MembershipType = in.MembershipType
	m.PaymentFrequency = in.PaymentFrequency
	m.JoinDate = membership.Day(in.JoinDate)
	m.IsActive = in.IsActive
}

// CreateMember validates and stores a member with its children, assigning a
// membership number unless one was given.
func CreateMember(gdb *gorm.DB, in MemberInput, kids []ChildInput) (models.Member, error) {
	if err := CheckStruct(in); err != nil {
		return models.Member{}, err
	}
	for _, k := range kids {
		if err := CheckStruct(k); err != nil {
			return models.Member{}, err
		}
	}

	var m models.Member
	in.apply(&m)
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return insertMember(tx, &m, strings.TrimSpace(in.MembershipNumber), kids)
	})
	if err != nil {
		return models.Member{}, uniqueFieldError(err)
	}
	membersCreated.WithLabelValues("form").Inc()
	return m, nil
}

func insertMember(tx *gorm.DB, m *models.Member, number string, kids []ChildInput) error {
	if number == "" {
		n, err := NextMembershipNumber(tx)
		if err != nil {
			return err
		}
		number = n
	} else if err := reserveMembershipNumber(tx, number); err != nil {
		return err
	}
	m.MembershipNumber = number
	active := m.IsActive
	if err := tx.Create(m).Error; err != nil {
		return err
	}
	// gorm swaps a false is_active for the column default on insert.
	if !active {
		if err := tx.Model(m).Update("is_active", false).Error; err != nil {
			return err
		}
		m.IsActive = false
	}
	for _, k := range kids {
		c := models.Child{MemberID: m.ID, Name: strings.TrimSpace(k.Name), DateOfBirth: k.DateOfBirth, Gender: k.Gender}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateMember saves edits. The membership number never changes once assigned;
// a change of type or frequency re-derives the cached validity.
func UpdateMember(gdb *gorm.DB, id uint, in MemberInput) (models.Member, error) {
	if err := CheckStruct(in); err != nil {
		return models.Member{}, err
	}
	var m models.Member
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err)
		}
		termsChanged := m.MembershipType != in.MembershipType || m.PaymentFrequency != in.PaymentFrequency
		in.apply(&m)
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		if termsChanged {
			if err := RederiveMember(tx, m.ID); err != nil {
				return err
			}
			return tx.First(&m, id).Error
		}
		return nil
	})
	if err != nil {
		return models.Member{}, uniqueFieldError(err)
	}
	return m, nil
}

// DeleteMember removes a member with its children and payments.
func DeleteMember(gdb *gorm.DB, id uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		var m models.Member
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.Child{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Member{}, id).Error
	})
}

func GetMember(gdb *gorm.DB, id uint) (models.Member, error) {
	var m models.Member
	err := gdb.Preload("Children", func(q *gorm.DB) *gorm.DB { return q.Order("date_of_birth asc, id asc") }).
		First(&m, id).Error
	return m, notFound(err)
}

// ListMembers applies the list filters; newest joiners first.
func ListMembers(gdb *gorm.DB, f MemberFilter) ([]models.Member, error) {
	q := gdb.Model(&models.Member{})
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(`LOWER(name) LIKE ? OR LOWER(membership_number) LIKE ? OR phone LIKE ? OR
			LOWER(email) LIKE ? OR LOWER(citizenship_number) LIKE ?`, like, like, like, like, like)
	}
	if f.Type != "" {
		q = q.Where("membership_type = ?", f.Type)
	}
	switch f.Status {
	case "active":
		q = q.Where("is_active = ?", true)
	case "inactive":
		q = q.Where("is_active = ?", false)
	}
	var out []models.Member
	err := q.Order("join_date desc, id desc").Find(&out).Error
	return out, errors.Wrap(err, "list members")
}

// ActiveMembers lists active members by name (payment form member picker).
func ActiveMembers(gdb *gorm.DB) ([]models.Member, error) {
	var out []models.Member
	err := gdb.Where("is_active = ?", true).Order("LOWER(name) asc").Find(&out).Error
	return out, err
}

// TotalPaid sums every payment a member has made.
func TotalPaid(gdb *gorm.DB, memberID uint) (float64, error) {
	var total float64
	err := gdb.Model(&models.Payment{}).Where("member_id = ?", memberID).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

// ---- children ----

func AddChild(gdb *gorm.DB, memberID uint, in ChildInput) (models.Child, error) {
	if err := CheckStruct(in); err != nil {
		return models.Child{}, err
	}
	var m models.Member
	if err := gdb.First(&m, memberID).Error; err != nil {
		return models.Child{}, notFound(err)
	}
	c := models.Child{MemberID: memberID, Name: strings.TrimSpace(in.Name), DateOfBirth: in.DateOfBirth, Gender: in.Gender}
	return c, gdb.Create(&c).Error
}

func UpdateChild(gdb *gorm.DB, memberID uint, in ChildInput) (models.Child, error) {
	if err := CheckStruct(in); err != nil {
		return models.Child{}, err
	}
	var c models.Child
	if err := gdb.Where("id = ? AND member_id = ?", in.ID, memberID).First(&c).Error; err != nil {
		return models.Child{}, notFound(err)
	}
	c.Name = strings.TrimSpace(in.Name)
	c.DateOfBirth = in.DateOfBirth
	c.Gender = in.Gender
	return c, gdb.Save(&c).Error
}

func DeleteChild(gdb *gorm.DB, memberID, childID uint) error {
	res := gdb.Where("id = ? AND member_id = ?", childID, memberID).Delete(&models.Child{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

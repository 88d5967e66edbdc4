package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/models"
)

type FeeInput struct {
	MembershipType   string  `form:"membership_type" validate:"required,membership_type"`
	PaymentFrequency string  `form:"payment_frequency" validate:"required,payment_frequency"`
	Amount           float64 `form:"amount" validate:"gt=0"`
	Description      string  `form:"description" validate:"max=500"`
	IsActive         bool    `form:"is_active"`
}

func (in FeeInput) apply(f *models.MembershipFee) {
	f.MembershipType = in.MembershipType
	f.PaymentFrequency = in.PaymentFrequency
	f.Amount = roundCents(in.Amount)
	f.Description = strings.TrimSpace(in.Description)
	f.IsActive = in.IsActive
}

func feeUniqueError(err error) error {
	if isUnique(err, "") {
		return NewValidationError(ErrDuplicate, FieldError{
			Error: "a fee for this membership type and payment frequency already exists",
		})
	}
	return err
}

func CreateFee(gdb *gorm.DB, in FeeInput) (models.MembershipFee, error) {
	if err := CheckStruct(in); err != nil {
		return models.MembershipFee{}, err
	}
	var f models.MembershipFee
	in.apply(&f)
	if err := gdb.Create(&f).Error; err != nil {
		return models.MembershipFee{}, feeUniqueError(err)
	}
	// gorm swaps a false is_active for the column default on insert.
	if !in.IsActive {
		if err := gdb.Model(&f).Update("is_active", false).Error; err != nil {
			return models.MembershipFee{}, err
		}
		f.IsActive = false
	}
	return f, nil
}

func UpdateFee(gdb *gorm.DB, id uint, in FeeInput) (models.MembershipFee, error) {
	if err := CheckStruct(in); err != nil {
		return models.MembershipFee{}, err
	}
	var f models.MembershipFee
	if err := gdb.First(&f, id).Error; err != nil {
		return models.MembershipFee{}, notFound(err)
	}
	in.apply(&f)
	if err := gdb.Save(&f).Error; err != nil {
		return models.MembershipFee{}, feeUniqueError(err)
	}
	return f, nil
}

// DeleteFee refuses to drop a fee that payments still reference.
func DeleteFee(gdb *gorm.DB, id uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		var f models.MembershipFee
		if err := tx.First(&f, id).Error; err != nil {
			return notFound(err)
		}
		var used int64
		if err := tx.Model(&models.Payment{}).Where("membership_fee_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return ErrFeeInUse
		}
		return tx.Delete(&f).Error
	})
}

func GetFee(gdb *gorm.DB, id uint) (models.MembershipFee, error) {
	var f models.MembershipFee
	return f, notFound(gdb.First(&f, id).Error)
}

// ListFees orders fees by type then frequency; activeOnly hides retired fees.
func ListFees(gdb *gorm.DB, activeOnly bool) ([]models.MembershipFee, error) {
	q := gdb.Order("membership_type asc, payment_frequency asc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.MembershipFee
	return out, q.Find(&out).Error
}

// FeeFor finds the active fee matching a member's terms.
func FeeFor(gdb *gorm.DB, typ, freq string) (models.MembershipFee, error) {
	var f models.MembershipFee
	err := gdb.Where("membership_type = ? AND payment_frequency = ? AND is_active = ?", typ, freq, true).
		First(&f).Error
	return f, notFound(err)
}

package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/models"
)

// timeNow is swapped in tests to pin the receipt issue day.
var timeNow = time.Now

// IssueDay is today's date in the association's timezone.
func IssueDay() time.Time {
	return membership.Day(timeNow().In(config.Location()))
}

type PaymentInput struct {
	MemberID             uint      `form:"member" validate:"required"`
	MembershipFeeID      uint      `form:"membership_fee" validate:"required"`
	Amount               float64   `form:"amount" validate:"gte=0"` // 0 = fee amount
	PaymentDate          time.Time `form:"payment_date" validate:"required"`
	PaymentMode          string    `form:"payment_mode" validate:"required,payment_mode"`
	TransactionReference string    `form:"transaction_reference" validate:"max=100"`
	CollectedBy          string    `form:"collected_by" validate:"max=100"`
	Remarks              string    `form:"remarks" validate:"max=1000"`
}

type PaymentFilter struct {
	Q        string
	Mode     string
	MemberID uint
	From, To *time.Time
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// checkFee enforces that a payment's fee is active and priced for the member's terms.
func checkFee(m models.Member, f models.MembershipFee) error {
	if !f.IsActive {
		return NewValidationError(ErrFeeInactive, FieldError{Field: "membership_fee", Error: "this fee is no longer active"})
	}
	if f.MembershipType != m.MembershipType {
		return NewValidationError(ErrFeeMismatch, FieldError{Error: fmt.Sprintf(
			"Selected fee is for %s members, but this member is %s.",
			models.Label(models.MembershipTypes, f.MembershipType),
			models.Label(models.MembershipTypes, m.MembershipType))})
	}
	if f.PaymentFrequency != m.PaymentFrequency {
		return NewValidationError(ErrFeeMismatch, FieldError{Error: fmt.Sprintf(
			"Selected fee is for %s payments, but this member pays %s.",
			models.Label(models.PaymentFrequencies, f.PaymentFrequency),
			models.Label(models.PaymentFrequencies, m.PaymentFrequency))})
	}
	return nil
}

// loadTerms fetches the member and fee a payment refers to and checks they agree.
func loadTerms(tx *gorm.DB, in PaymentInput) (models.Member, models.MembershipFee, error) {
	var m models.Member
	if err := tx.First(&m, in.MemberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return m, models.MembershipFee{}, NewValidationError(errInvalidInput, FieldError{Field: "member", Error: "select a valid member"})
		}
		return m, models.MembershipFee{}, err
	}
	var f models.MembershipFee
	if err := tx.First(&f, in.MembershipFeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return m, f, NewValidationError(errInvalidInput, FieldError{Field: "membership_fee", Error: "select a valid fee"})
		}
		return m, f, err
	}
	return m, f, checkFee(m, f)
}

func (in PaymentInput) apply(p *models.Payment, f models.MembershipFee) {
	p.MemberID = in.MemberID
	p.MembershipFeeID = f.ID
	p.Amount = roundCents(in.Amount)
	if p.Amount == 0 {
		p.Amount = f.Amount
	}
	p.PaymentDate = membership.Day(in.PaymentDate)
	p.PaymentMode = in.PaymentMode
	p.TransactionReference = strings.TrimSpace(in.TransactionReference)
	p.CollectedBy = strings.TrimSpace(in.CollectedBy)
	p.Remarks = strings.TrimSpace(in.Remarks)
}

// RecordPayment stores a payment under a fresh receipt number and refreshes
// the member's cached validity, all in one transaction.
func RecordPayment(gdb *gorm.DB, in PaymentInput) (models.Payment, error) {
	if err := CheckStruct(in); err != nil {
		return models.Payment{}, err
	}
	var p models.Payment
	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, f, err := loadTerms(tx, in)
		if err != nil {
			return err
		}
		in.apply(&p, f)
		if p.ReceiptNumber, err = NextReceiptNumber(tx, IssueDay()); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return errors.Wrap(err, "insert payment")
		}
		return RederiveMember(tx, p.MemberID)
	})
	if err != nil {
		return models.Payment{}, err
	}
	paymentOps.WithLabelValues("record").Inc()
	revenueCollected.WithLabelValues(p.PaymentMode).Add(p.Amount)
	return p, nil
}

// UpdatePayment edits a payment; the receipt number is kept. When the payment
// moves to another member both members are re-derived.
func UpdatePayment(gdb *gorm.DB, id uint, in PaymentInput) (models.Payment, error) {
	if err := CheckStruct(in); err != nil {
		return models.Payment{}, err
	}
	var p models.Payment
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err)
		}
		prevMember := p.MemberID
		_, f, err := loadTerms(tx, in)
		if err != nil {
			return err
		}
		in.apply(&p, f)
		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return errors.Wrap(err, "update payment")
		}
		if prevMember != p.MemberID {
			if err := RederiveMember(tx, prevMember); err != nil {
				return err
			}
		}
		return RederiveMember(tx, p.MemberID)
	})
	if err != nil {
		return models.Payment{}, err
	}
	paymentOps.WithLabelValues("update").Inc()
	return p, nil
}

// DeletePayment removes a payment and rolls the member's validity back to
// whatever the remaining history supports. It returns the deleted receipt number.
func DeletePayment(gdb *gorm.DB, id uint) (string, error) {
	var p models.Payment
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&models.Payment{}, id).Error; err != nil {
			return err
		}
		return RederiveMember(tx, p.MemberID)
	})
	if err != nil {
		return "", err
	}
	paymentOps.WithLabelValues("delete").Inc()
	return p.ReceiptNumber, nil
}

// RederiveMember recomputes last_payment_date and membership_valid_until from
// the member's latest payment (by payment date, then id).
func RederiveMember(tx *gorm.DB, memberID uint) error {
	var m models.Member
	if err := tx.First(&m, memberID).Error; err != nil {
		return notFound(err)
	}
	var latest models.Payment
	if err := tx.Where("member_id = ?", memberID).
		Order("payment_date desc, id desc").Limit(1).Find(&latest).Error; err != nil {
		return err
	}

	var last, until *time.Time
	if latest.ID != 0 {
		d := membership.Day(latest.PaymentDate)
		last = &d
		until = membership.ValidUntilAfterPayment(m.MembershipType, m.PaymentFrequency, d)
	}
	return tx.Model(&models.Member{}).Where("id = ?", memberID).Updates(map[string]any{
		"last_payment_date":      last,
		"membership_valid_until": until,
	}).Error
}

// RederiveAll re-syncs every member's derived dates with its payment history.
// Each member gets its own transaction; the first failure stops the run.
func RederiveAll(gdb *gorm.DB) (int, error) {
	var ids []uint
	if err := gdb.Model(&models.Member{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, errors.Wrap(err, "list members")
	}
	for i, id := range ids {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			return RederiveMember(tx, id)
		})
		if err != nil {
			return i, errors.Wrapf(err, "member %d", id)
		}
	}
	return len(ids), nil
}

func GetPayment(gdb *gorm.DB, id uint) (models.Payment, error) {
	var p models.Payment
	err := gdb.Preload("Member").Preload("MembershipFee").First(&p, id).Error
	return p, notFound(err)
}

// ListPayments returns matching payments, newest first, and their total.
func ListPayments(gdb *gorm.DB, f PaymentFilter) ([]models.Payment, float64, error) {
	q := gdb.Model(&models.Payment{}).Joins("JOIN members ON members.id = payments.member_id")
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(payments.receipt_number) LIKE ? OR LOWER(members.name) LIKE ? OR LOWER(members.membership_number) LIKE ?",
			like, like, like)
	}
	if f.Mode != "" {
		q = q.Where("payments.payment_mode = ?", f.Mode)
	}
	if f.MemberID != 0 {
		q = q.Where("payments.member_id = ?", f.MemberID)
	}
	if f.From != nil {
		q = q.Where("payments.payment_date >= ?", membership.Day(*f.From))
	}
	if f.To != nil {
		q = q.Where("payments.payment_date <= ?", membership.Day(*f.To))
	}

	var total float64
	if err := q.Session(&gorm.Session{}).Select("COALESCE(SUM(payments.amount), 0)").Scan(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "sum payments")
	}
	var out []models.Payment
	err := q.Session(&gorm.Session{}).Select("payments.*").
		Preload("Member").Preload("MembershipFee").
		Order("payments.payment_date desc, payments.id desc").Find(&out).Error
	return out, roundCents(total), errors.Wrap(err, "list payments")
}

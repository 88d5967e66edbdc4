package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/models"
)

// Membership numbers are global (PREFIX-MEM-00001); receipt numbers restart
// every day (PREFIX-20240101-0001). Both are drawn from the counters table
// inside the caller's transaction, so concurrent writers never share a value.

const memberCounter = "member"

func receiptCounter(day time.Time) string {
	return "receipt-" + day.Format("20060102")
}

func FormatMembershipNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-MEM-%05d", prefix, n)
}

func FormatReceiptNumber(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), n)
}

// ParseSuffix reads the numeric segment after the last '-'.
func ParseSuffix(id string) (int64, bool) {
	i := strings.LastIndex(id, "-")
	n, err := strconv.ParseInt(strings.TrimSpace(id[i+1:]), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextMembershipNumber allocates the next membership number. Call it inside a transaction.
func NextMembershipNumber(tx *gorm.DB) (string, error) {
	n, err := allocate(tx, memberCounter, seedMembers)
	if err != nil {
		return "", errors.Wrap(err, "allocate membership number")
	}
	return FormatMembershipNumber(config.IDPrefix(), n), nil
}

// NextReceiptNumber allocates the next receipt number for day. Call it inside a transaction.
func NextReceiptNumber(tx *gorm.DB, day time.Time) (string, error) {
	n, err := allocate(tx, receiptCounter(day), func(tx *gorm.DB) (int64, error) {
		return seedReceipts(tx, day)
	})
	if err != nil {
		return "", errors.Wrap(err, "allocate receipt number")
	}
	return FormatReceiptNumber(config.IDPrefix(), day, n), nil
}

// reserveMembershipNumber moves the member counter past an explicitly assigned number.
func reserveMembershipNumber(tx *gorm.DB, number string) error {
	n, ok := ParseSuffix(number)
	if !ok {
		return nil
	}
	var c models.Counter
	err := tx.Where("name = ?", memberCounter).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seed, err := seedMembers(tx)
		if err != nil {
			return err
		}
		if n > seed {
			seed = n
		}
		return tx.Create(&models.Counter{Name: memberCounter, Value: seed}).Error
	}
	if err != nil {
		return err
	}
	if n <= c.Value {
		return nil
	}
	return tx.Model(&models.Counter{}).Where("name = ? AND value < ?", memberCounter, n).
		UpdateColumn("value", n).Error
}

// allocate bumps the named counter and returns the new value. A missing
// counter is seeded from the identifiers already issued.
func allocate(tx *gorm.DB, name string, seed func(*gorm.DB) (int64, error)) (int64, error) {
	res := tx.Model(&models.Counter{}).Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		start, err := seed(tx)
		if err != nil {
			return 0, err
		}
		c := models.Counter{Name: name, Value: start + 1}
		if err := tx.Create(&c).Error; err != nil {
			return 0, err
		}
		return c.Value, nil
	}
	var c models.Counter
	if err := tx.Where("name = ?", name).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

// seedMembers: suffix of the last created member, falling back to the member count.
func seedMembers(tx *gorm.DB) (int64, error) {
	var last models.Member
	err := tx.Order("id desc").Limit(1).Find(&last).Error
	if err != nil {
		return 0, err
	}
	if last.ID == 0 {
		return 0, nil
	}
	if n, ok := ParseSuffix(last.MembershipNumber); ok {
		return n, nil
	}
	var count int64
	if err := tx.Model(&models.Member{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// seedReceipts: greatest suffix among receipts carrying day's date, falling back to their count.
func seedReceipts(tx *gorm.DB, day time.Time) (int64, error) {
	prefix := FormatReceiptNumber(config.IDPrefix(), day, 0)
	prefix = prefix[:strings.LastIndex(prefix, "-")+1]

	var last models.Payment
	if err := tx.Where("receipt_number LIKE ?", prefix+"%").
		Order("receipt_number desc").Limit(1).Find(&last).Error; err != nil {
		return 0, err
	}
	if last.ID == 0 {
		return 0, nil
	}
	if n, ok := ParseSuffix(last.ReceiptNumber); ok {
		return n, nil
	}
	var count int64
	if err := tx.Model(&models.Payment{}).Where("receipt_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

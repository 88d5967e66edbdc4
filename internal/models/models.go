package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Member struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name        string `gorm:"not null"`
	DateOfBirth *time.Time
	Gender      string
	Phone       string
	Email       string
	Address     string

	FatherName      string
	GrandfatherName string
	SpouseName      string

	CitizenshipNumber        string `gorm:"uniqueIndex;not null"`
	CitizenshipIssueDate     *time.Time
	CitizenshipIssueDistrict string

	MembershipType   string `gorm:"not null;default:REGULAR"`
	PaymentFrequency string `gorm:"not null;default:ANNUAL"`
	MembershipNumber string `gorm:"uniqueIndex;not null"` // e.g. NSS-MEM-00042
	JoinDate         time.Time
	IsActive         bool `gorm:"not null;default:true"`

	// Derived from the payment history; only the payment service writes these.
	LastPaymentDate      *time.Time
	MembershipValidUntil *time.Time // nil = never expires (or never paid)

	Children []Child   `gorm:"constraint:OnDelete:CASCADE"`
	Payments []Payment `gorm:"constraint:OnDelete:CASCADE"`
}

type Child struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name        string `gorm:"not null"`
	DateOfBirth *time.Time
	Gender      string

	MemberID uint `gorm:"index;not null"`
}

type MembershipFee struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	MembershipType   string  `gorm:"uniqueIndex:idx_fee_type_freq;not null"`
	PaymentFrequency string  `gorm:"uniqueIndex:idx_fee_type_freq;not null"`
	Amount           float64 `gorm:"type:numeric(10,2);not null"`
	Description      string
	IsActive         bool `gorm:"not null;default:true"`
}

type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	MemberID        uint `gorm:"index;not null"`
	Member          Member
	MembershipFeeID uint `gorm:"index;not null"`
	MembershipFee   MembershipFee `gorm:"constraint:OnDelete:RESTRICT"`

	Amount               float64   `gorm:"type:numeric(10,2);not null"`
	PaymentDate          time.Time `gorm:"index;not null"`
	PaymentMode          string    `gorm:"not null"` // CASH | BANK_TRANSFER | ONLINE | CHEQUE
	TransactionReference string
	ReceiptNumber        string `gorm:"uniqueIndex;not null"` // e.g. NSS-20240101-0001
	CollectedBy          string
	Remarks              string
}

// Counter backs identifier allocation: one row per sequence key.
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string `gorm:"not null"`
	IsStaff      bool   `gorm:"not null;default:false"`
	IsSuperuser  bool   `gorm:"not null;default:false"`
	IsActive     bool   `gorm:"not null;default:true"`
	DateJoined   time.Time
	LastLogin    *time.Time

	Profile *UserProfile
}

// IsElevated reports whether the account bypasses the approval gate.
func (u User) IsElevated() bool {
	return u.IsStaff || u.IsSuperuser
}

func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Username
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u User) CheckPassword(pwd string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd)) == nil
}

// AfterCreate gives every new account its profile. Elevated accounts start approved.
func (u *User) AfterCreate(tx *gorm.DB) error {
	p := UserProfile{UserID: u.ID}
	if u.IsElevated() {
		now := time.Now().UTC()
		p.IsApproved = true
		p.ApprovedAt = &now
	}
	if err := tx.Create(&p).Error; err != nil {
		return err
	}
	u.Profile = &p
	return nil
}

type UserProfile struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID       uint `gorm:"uniqueIndex;not null"`
	IsApproved   bool `gorm:"not null;default:false"`
	ApprovedByID *uint
	ApprovedBy   *User `gorm:"foreignKey:ApprovedByID"`
	ApprovedAt   *time.Time
}

type Session struct {
	Token     string `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index"`
}

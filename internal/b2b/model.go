// Package b2b handles wholesale account applications. Registrations
// are the only state this service owns itself; approval creates the
// actual account in WooCommerce.
package b2b

import (
	"time"

	"github.com/google/uuid"
)

// Status of a registration. Transitions only move forward: pending
// becomes approved or rejected, never back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Registration is a wholesale application as stored in Postgres.
type Registration struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyName     string    `gorm:"not null" json:"company_name"`
	CoCNumber       string    `gorm:"column:coc_number;not null" json:"coc_number"`
	VATNumber       string    `gorm:"column:vat_number" json:"vat_number"`
	ContactName     string    `gorm:"not null" json:"contact_name"`
	Email           string    `gorm:"not null" json:"email"`
	Phone           string    `json:"phone"`
	AddressLine1    string    `json:"address_line1"`
	AddressLine2    string    `json:"address_line2"`
	PostalCode      string    `json:"postal_code"`
	City            string    `json:"city"`
	Country         string    `gorm:"default:NL" json:"country"`
	Status          Status    `gorm:"default:pending" json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	WooCustomerID   *int64    `gorm:"column:woo_customer_id" json:"woo_customer_id,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Registration) TableName() string {
	return "b2b_registrations"
}

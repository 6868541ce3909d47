package b2b

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

type registrationStore interface {
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)
	GetByEmail(ctx context.Context, email string) (*Registration, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Registration, error)
	Update(ctx context.Context, reg *Registration) error
}

type customerCreator interface {
	CreateCustomer(ctx context.Context, input map[string]any) (*woocommerce.Customer, error)
}

type Service struct {
	store     registrationStore
	customers customerCreator
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(store registrationStore, customers customerCreator, logg *logger.Logger) *Service {
	return &Service{store: store, customers: customers, logg: logg, now: time.Now}
}

// RegistrationInput is the public application form.
type RegistrationInput struct {
	CompanyName  string `json:"company_name" validate:"required"`
	CoCNumber    string `json:"coc_number" validate:"required"`
	VATNumber    string `json:"vat_number"`
	ContactName  string `json:"contact_name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	Country      string `json:"country"`
}

// Register files a new wholesale application.
func (s *Service) Register(ctx context.Context, input RegistrationInput) (*Registration, error) {
	existing, err := s.store.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a registration for this email already exists")
	}

	country := input.Country
	if country == "" {
		country = "NL"
	}
	reg := &Registration{
		ID:           uuid.New(),
		CompanyName:  input.CompanyName,
		CoCNumber:    input.CoCNumber,
		VATNumber:    input.VATNumber,
		ContactName:  input.ContactName,
		Email:        input.Email,
		Phone:        input.Phone,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		PostalCode:   input.PostalCode,
		City:         input.City,
		Country:      country,
		Status:       StatusPending,
	}
	if err := s.store.Create(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Get returns one registration for the admin review screen.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return s.store.GetByID(ctx, id)
}

// List returns registrations, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]Registration, error) {
	if status != "" && status != StatusPending && status != StatusApproved && status != StatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter")
	}
	return s.store.ListByStatus(ctx, status, limit, offset)
}

// Approve creates the wholesale customer in WooCommerce and marks the
// registration approved. A registration that already left pending is
// not reviewed twice.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Registration, error) {
	reg, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != StatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "registration already reviewed")
	}

	customer, err := s.customers.CreateCustomer(ctx, map[string]any{
		"email":      reg.Email,
		"first_name": reg.ContactName,
		"role":       "b2b_customer",
		"billing": map[string]any{
			"company":   reg.CompanyName,
			"address_1": reg.AddressLine1,
			"address_2": reg.AddressLine2,
			"postcode":  reg.PostalCode,
			"city":      reg.City,
			"country":   reg.Country,
			"phone":     reg.Phone,
		},
	})
	if err != nil {
		return nil, err
	}

	reviewedAt := s.now().UTC()
	reg.Status = StatusApproved
	reg.WooCustomerID = &customer.ID
	reg.ReviewedAt = &reviewedAt
	if err := s.store.Update(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Reject closes a pending registration with a reason for the applicant.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Registration, error) {
	reg, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != StatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "registration already reviewed")
	}

	reviewedAt := s.now().UTC()
	reg.Status = StatusRejected
	reg.RejectionReason = reason
	reg.ReviewedAt = &reviewedAt
	if err := s.store.Update(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

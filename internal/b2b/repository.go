package b2b

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
)

// Repository persists registrations through gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, reg *Registration) error {
	err := r.db.WithContext(ctx).Create(reg).Error
	if err != nil && isUniqueViolation(err) {
		return pkgerrors.New(pkgerrors.CodeConflict, "a registration for this email already exists")
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	var reg Registration
	err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registration not found")
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Registration, error) {
	var reg Registration
	err := r.db.WithContext(ctx).First(&reg, "lower(email) = lower(?)", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Registration, error) {
	if limit <= 0 {
		limit = 50
	}
	var regs []Registration
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *Repository) Update(ctx context.Context, reg *Registration) error {
	return r.db.WithContext(ctx).Save(reg).Error
}

// isUniqueViolation covers both the Postgres error text and the sqlite
// one used in tests.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

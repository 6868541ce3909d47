package b2b

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

type memoryRegistrations struct {
	regs map[uuid.UUID]*Registration
}

func newMemoryRegistrations() *memoryRegistrations {
	return &memoryRegistrations{regs: make(map[uuid.UUID]*Registration)}
}

func (m *memoryRegistrations) Create(_ context.Context, reg *Registration) error {
	reg.CreatedAt = time.Now().UTC()
	copied := *reg
	m.regs[reg.ID] = &copied
	return nil
}

func (m *memoryRegistrations) GetByID(_ context.Context, id uuid.UUID) (*Registration, error) {
	reg, ok := m.regs[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registration not found")
	}
	copied := *reg
	return &copied, nil
}

func (m *memoryRegistrations) GetByEmail(_ context.Context, email string) (*Registration, error) {
	for _, reg := range m.regs {
		if reg.Email == email {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryRegistrations) ListByStatus(_ context.Context, status Status, _, _ int) ([]Registration, error) {
	var out []Registration
	for _, reg := range m.regs {
		if status == "" || reg.Status == status {
			out = append(out, *reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRegistrations) Update(_ context.Context, reg *Registration) error {
	copied := *reg
	m.regs[reg.ID] = &copied
	return nil
}

type fakeCustomerCreator struct {
	created []map[string]any
	nextID  int64
}

func (f *fakeCustomerCreator) CreateCustomer(_ context.Context, input map[string]any) (*woocommerce.Customer, error) {
	f.created = append(f.created, input)
	f.nextID++
	return &woocommerce.Customer{ID: f.nextID, Email: input["email"].(string)}, nil
}

func testB2B() (*Service, *memoryRegistrations, *fakeCustomerCreator) {
	store := newMemoryRegistrations()
	creator := &fakeCustomerCreator{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	return NewService(store, creator, logg), store, creator
}

func validInput() RegistrationInput {
	return RegistrationInput{
		CompanyName: "Groenvelt BV",
		CoCNumber:   "12345678",
		ContactName: "Jan Jansen",
		Email:       "inkoop@groenvelt.nl",
		City:        "Utrecht",
	}
}

func TestRegisterCreatesPendingRegistration(t *testing.T) {
	svc, _, _ := testB2B()

	reg, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, reg.Status)
	assert.Equal(t, "NL", reg.Country, "country defaults to NL")
	assert.NotEqual(t, uuid.Nil, reg.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := testB2B()
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validInput())
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
}

func TestApproveCreatesWholesaleCustomer(t *testing.T) {
	svc, _, creator := testB2B()
	ctx := context.Background()

	reg, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, reg.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.WooCustomerID)
	require.NotNil(t, approved.ReviewedAt)

	require.Len(t, creator.created, 1)
	assert.Equal(t, "b2b_customer", creator.created[0]["role"])
}

func TestApproveTwiceFails(t *testing.T) {
	svc, _, creator := testB2B()
	ctx := context.Background()

	reg, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, reg.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, reg.ID)
	require.Error(t, err, "a reviewed registration cannot be approved again")
	assert.Len(t, creator.created, 1)
}

func TestRejectRecordsReason(t *testing.T) {
	svc, _, creator := testB2B()
	ctx := context.Background()

	reg, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, reg.ID, "KvK nummer klopt niet")
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "KvK nummer klopt niet", rejected.RejectionReason)
	assert.Empty(t, creator.created, "rejection must not create a customer")

	_, err = svc.Approve(ctx, reg.ID)
	require.Error(t, err, "rejected registrations stay rejected")
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, _ := testB2B()
	ctx := context.Background()

	first, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	other := validInput()
	other.Email = "verkoop@anders.nl"
	_, err = svc.Register(ctx, other)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, first.ID)
	require.NoError(t, err)

	pending, err := svc.List(ctx, StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, Status("bogus"), 10, 0)
	require.Error(t, err)
}

// Package accounts holds customer authentication and the account pages.
// Credentials live in WordPress; customer records live in WooCommerce;
// this service only mints its own short-lived tokens on top.
package accounts

import (
	"context"
	"time"

	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	"github.com/groenvelt/storefront-bff/internal/upstream/wordpress"
	"github.com/groenvelt/storefront-bff/pkg/auth"
	"github.com/groenvelt/storefront-bff/pkg/auth/session"
	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

type credentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (*wordpress.Identity, error)
}

type customerSource interface {
	GetCustomerByEmail(ctx context.Context, email string) (*woocommerce.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*woocommerce.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, input map[string]any) (*woocommerce.Customer, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64, page, perPage int) ([]woocommerce.Order, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type Service struct {
	creds     credentialChecker
	customers customerSource
	sessions  sessionManager
	jwtCfg    config.JWTConfig
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(creds credentialChecker, customers customerSource, sessions sessionManager, jwtCfg config.JWTConfig, logg *logger.Logger) *Service {
	return &Service{
		creds:     creds,
		customers: customers,
		sessions:  sessions,
		jwtCfg:    jwtCfg,
		logg:      logg,
		now:       time.Now,
	}
}

// TokenPair is what login and refresh hand to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login checks the credentials against WordPress and issues a token
// pair bound to the matching WooCommerce customer.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	identity, err := s.creds.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetCustomerByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		// Valid WordPress login without a shop account; editors land
		// here. There is nothing to issue a storefront session for.
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no customer account for these credentials")
	}

	return s.issue(ctx, customer)
}

// Refresh rotates the refresh token and mints a fresh access token.
// The expired access token is accepted as identity proof; the refresh
// token is what is actually verified.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "refresh rejected")
	}

	access, err := auth.MintAccessToken(s.jwtCfg, s.now(), auth.AccessTokenPayload{
		CustomerID: claims.CustomerID,
		Email:      claims.Email,
		Role:       claims.Role,
		JTI:        newAccessID,
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout revokes the refresh session behind the given access token.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	return s.sessions.Revoke(ctx, claims.ID)
}

// Profile returns the customer record behind the session.
func (s *Service) Profile(ctx context.Context, customerID int64) (*woocommerce.Customer, error) {
	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

// UpdateProfile patches the customer record.
func (s *Service) UpdateProfile(ctx context.Context, customerID int64, input map[string]any) (*woocommerce.Customer, error) {
	return s.customers.UpdateCustomer(ctx, customerID, input)
}

// Orders returns the customer's order history.
func (s *Service) Orders(ctx context.Context, customerID int64, page, perPage int) ([]woocommerce.Order, error) {
	return s.customers.ListOrdersByCustomer(ctx, customerID, page, perPage)
}

func (s *Service) issue(ctx context.Context, customer *woocommerce.Customer) (*TokenPair, error) {
	accessID := session.NewAccessID()
	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, err
	}

	access, err := auth.MintAccessToken(s.jwtCfg, s.now(), auth.AccessTokenPayload{
		CustomerID: customer.ID,
		Email:      customer.Email,
		Role:       roleFor(customer),
		JTI:        accessID,
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func roleFor(customer *woocommerce.Customer) auth.Role {
	switch customer.Role {
	case "administrator", "shop_manager":
		return auth.RoleAdmin
	case "b2b_customer":
		return auth.RoleB2B
	default:
		return auth.RoleCustomer
	}
}

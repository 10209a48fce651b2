package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/pkg/common"
	"go.uber.org/zap"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	BusinessName  string
	BusinessEmail string
	BusinessPhone string
	Address       string
	Phone         string
}

// ProfileInput follows the same preserve-unless-provided rule as invoice
// updates: empty fields keep their stored value.
type ProfileInput struct {
	Name          string
	Email         string
	Password      string
	BusinessName  string
	BusinessEmail string
	BusinessPhone string
	Address       string
	Phone         string
}

// Session is returned by Register and Login.
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Service handles accounts and resolves the seller block of invoices.
type Service struct {
	users    UserStore
	tokens   *TokenService
	business domain.Seller
	now      func() time.Time
}

func NewService(users UserStore, tokens *TokenService, business domain.Seller) *Service {
	return &Service{users: users, tokens: tokens, business: business, now: time.Now}
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:            common.UUIDint64(),
		Name:          name,
		Email:         email,
		Password:      hash,
		BusinessName:  strings.TrimSpace(in.BusinessName),
		BusinessEmail: strings.TrimSpace(in.BusinessEmail),
		BusinessPhone: strings.TrimSpace(in.BusinessPhone),
		Address:       strings.TrimSpace(in.Address),
		Phone:         strings.TrimSpace(in.Phone),
		LastLogin:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return nil, err
	}
	zap.L().Info("user registered", zap.String("namespace", "auth"), zap.Int64("user_id", user.ID))
	return s.session(user)
}

// Login fails with ErrUnauthorized without revealing which credential
// was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	ok, err := CheckPassword(user.Password, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		zap.L().Warn("login failed", zap.String("namespace", "auth"), zap.Int64("user_id", user.ID))
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	user.LastLogin = s.now()
	if err := s.users.Save(ctx, user); err != nil {
		zap.L().Warn("update last login failed", zap.String("namespace", "auth"), zap.Error(err))
	}
	return s.session(user)
}

func (s *Service) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Email != "" {
		email, err := normalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.Password != "" {
		if len(in.Password) < MinPasswordLength {
			return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
		}
		if user.Password, err = HashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	user.Name = common.IfEmptyStr(strings.TrimSpace(in.Name), user.Name)
	user.BusinessName = common.IfEmptyStr(strings.TrimSpace(in.BusinessName), user.BusinessName)
	user.BusinessEmail = common.IfEmptyStr(strings.TrimSpace(in.BusinessEmail), user.BusinessEmail)
	user.BusinessPhone = common.IfEmptyStr(strings.TrimSpace(in.BusinessPhone), user.BusinessPhone)
	user.Address = common.IfEmptyStr(strings.TrimSpace(in.Address), user.Address)
	user.Phone = common.IfEmptyStr(strings.TrimSpace(in.Phone), user.Phone)
	user.UpdatedAt = s.now()

	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

// SellerFor builds the billFrom block from the owner's business profile,
// falling back field by field to the configured business.
func (s *Service) SellerFor(ctx context.Context, ownerID int64) domain.Seller {
	seller := s.business
	user, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("seller profile lookup failed", zap.String("namespace", "auth"), zap.Int64("user_id", ownerID), zap.Error(err))
		}
		return seller
	}
	seller.BusinessName = common.IfEmptyStr(user.BusinessName, seller.BusinessName)
	seller.Email = common.IfEmptyStr(user.BusinessEmail, seller.Email)
	seller.Address = common.IfEmptyStr(user.Address, seller.Address)
	seller.Phone = common.IfEmptyStr(user.BusinessPhone, seller.Phone)
	return seller
}

func (s *Service) session(user *domain.User) (*Session, error) {
	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	return strings.ToLower(addr.Address), nil
}

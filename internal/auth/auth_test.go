package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultSeller = domain.Seller{
	BusinessName: "Cotton Stock Kid's Wear",
	Email:        "cottonstockkidswear@gmail.com",
	Address:      "Chembur",
	Phone:        "8591116115",
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	tokens, err := NewTokenService("test-secret", time.Hour, "invoicedesk")
	require.NoError(t, err)
	return NewService(NewMemoryUserStore(), tokens, defaultSeller)
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	tests := []struct {
		name  string
		hash  string
		plain string
		want  bool
	}{
		{name: "match", hash: hash, plain: "s3cret!", want: true},
		{name: "mismatch", hash: hash, plain: "wrong", want: false},
		{name: "malformed hash", hash: "abc", plain: "s3cret!", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := CheckPassword(tt.hash, tt.plain)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokenService("k", time.Hour, "invoicedesk")
	require.NoError(t, err)

	raw, err := tokens.Sign(42)
	require.NoError(t, err)
	id, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	other, _ := NewTokenService("other", time.Hour, "invoicedesk")
	_, err = other.Parse(raw)
	assert.Error(t, err)

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := tokens.Sign(42)
	require.NoError(t, err)
	tokens.now = time.Now
	_, err = tokens.Parse(expired)
	assert.Error(t, err)

	_, err = NewTokenService("", time.Hour, "")
	assert.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Name: "Priya", Email: " Priya@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "priya@example.com", sess.User.Email)

	id, err := svc.Tokens().Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id)

	_, err = svc.Register(ctx, RegisterInput{Name: "Dup", Email: "priya@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = svc.Register(ctx, RegisterInput{Name: "Short", Email: "s@example.com", Password: "123"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Register(ctx, RegisterInput{Name: "Bad", Email: "not-an-email", Password: "secret1"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	login, err := svc.Login(ctx, "PRIYA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "priya@example.com", "wrong-pass")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestUpdateProfilePreservesEmptyFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Name: "Priya", Email: "p@example.com", Password: "secret1", Phone: "111"})
	require.NoError(t, err)

	user, err := svc.UpdateProfile(ctx, sess.User.ID, ProfileInput{BusinessName: "Priya Kids"})
	require.NoError(t, err)
	assert.Equal(t, "Priya Kids", user.BusinessName)
	assert.Equal(t, "Priya", user.Name)
	assert.Equal(t, "111", user.Phone)

	_, err = svc.UpdateProfile(ctx, sess.User.ID, ProfileInput{Password: "newsecret"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "p@example.com", "newsecret")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, 12345, ProfileInput{Name: "ghost"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSellerFor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.Equal(t, defaultSeller, svc.SellerFor(ctx, 999))

	sess, err := svc.Register(ctx, RegisterInput{
		Name: "Priya", Email: "p@example.com", Password: "secret1",
		BusinessName: "Priya Kids", BusinessPhone: "222",
	})
	require.NoError(t, err)

	seller := svc.SellerFor(ctx, sess.User.ID)
	assert.Equal(t, "Priya Kids", seller.BusinessName)
	assert.Equal(t, "222", seller.Phone)
	assert.Equal(t, defaultSeller.Email, seller.Email)
	assert.Equal(t, defaultSeller.Address, seller.Address)
}

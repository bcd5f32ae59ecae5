package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixeltask/backend/internal/models"
)

var (
	// ErrDuplicateEmail means the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike; login never says which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRole means self-registration with a role other than client or worker.
	ErrInvalidRole = errors.New("invalid role")
	// ErrUserNotFound means no user exists for the given id.
	ErrUserNotFound = errors.New("user not found")
)

// Store persists users. Create fails with ErrDuplicateEmail on a taken email.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, role string) ([]*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
}

type Service interface {
	Register(ctx context.Context, email, password, name string, role models.Role) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	// ValidateToken satisfies middleware.TokenValidator.
	ValidateToken(ctx context.Context, token string) (uuid.UUID, models.Role, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, role string) ([]*models.User, error)
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
}

type service struct {
	store    Store
	secret   []byte
	tokenTTL time.Duration
}

func NewService(store Store, secret string, tokenTTL time.Duration) Service {
	return &service{store: store, secret: []byte(secret), tokenTTL: tokenTTL}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// Register creates a client or worker account. Admins are seeded by
// migrations, never self-registered.
func (s *service) Register(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	if role != models.RoleClient && role != models.RoleWorker {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !u.IsActive || u.IsSystem {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) issueToken(userID uuid.UUID, role models.Role) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, models.Role, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *service) ListUsers(ctx context.Context, role string) ([]*models.User, error) {
	return s.store.List(ctx, role)
}

func (s *service) SetUserActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	return s.store.SetActive(ctx, id, active)
}

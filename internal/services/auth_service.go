package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/SurveyForge/internal/models"
)

type UserStore interface {
	FindUser(ctx context.Context, username string) (*models.User, error)
	AddUser(ctx context.Context, u *models.User) error
}

// TokenIssuer signs a bearer token for username.
type TokenIssuer func(username string) (string, error)

type AuthService struct {
	store     UserStore
	now       func() time.Time
	issue     TokenIssuer
	hashCost  int
	dummyHash []byte
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

const invalidCredentials = "Invalid credentials"

func NewAuthService(store UserStore, issue TokenIssuer) *AuthService {
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		issue:     issue,
		hashCost:  bcrypt.DefaultCost,
		dummyHash: dummyHash,
	}
}

// dummyHash is compared against when the user does not exist, so a miss costs
// the same as a mismatch.
var dummyHash = mustHash("surveyforge-dummy", bcrypt.DefaultCost)

func mustHash(password string, cost int) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		panic("services: bcrypt dummy hash: " + err.Error())
	}
	return hash
}

func (s *AuthService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return NewInvalidError("username/password required")
	}
	existing, err := s.store.FindUser(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return NewConflictError("Username already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return NewInvalidError("password too long")
	}
	if err != nil {
		return err
	}
	err = s.store.AddUser(ctx, &models.User{Username: username, PassHash: hash, CreatedAt: s.now()})
	if errors.Is(err, ErrDuplicate) {
		return NewConflictError("Username already exists")
	}
	return err
}

// Verify fails closed: an unknown username and a wrong password are reported identically.
func (s *AuthService) Verify(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return NewUnauthorizedError(invalidCredentials)
	}
	u, err := s.store.FindUser(ctx, username)
	if err != nil {
		return err
	}
	hash := s.dummyHash
	if u != nil {
		hash = u.PassHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || u == nil {
		return NewUnauthorizedError(invalidCredentials)
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if err := s.Verify(ctx, username, password); err != nil {
		return nil, err
	}
	if s.issue == nil {
		return nil, errors.New("token issuer not configured")
	}
	token, err := s.issue(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, TokenType: "bearer"}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"bragboard/server/board/domain"
	"bragboard/server/common/auth"
	commonlog "bragboard/server/common/log"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenIssuer interface {
	GenerateToken(userID int64, role string) (string, error)
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
}

func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type RegisterInput struct {
	Name       string `json:"name" form:"name"`
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	Department string `json:"department" form:"department"`
	Bio        string `json:"bio" form:"bio"`
}

type Session struct {
	Token string
	User  domain.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.users.CreateUser(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Department:   strings.TrimSpace(in.Department),
		Role:         domain.UserRoleEmployee,
		Bio:          strings.TrimSpace(in.Bio),
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return Session{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return Session{}, err
	}
	commonlog.Infof("event=auth action=register status=ok user_id=%d department=%q", user.ID, user.Department)
	return s.issue(user)
}

// Login rejects soft-deleted accounts with the same error as a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if user.IsDeleted {
		commonlog.Infof("event=auth action=login status=rejected reason=deleted user_id=%d", user.ID)
		return Session{}, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		commonlog.Infof("event=auth action=login status=rejected reason=password user_id=%d", user.ID)
		return Session{}, ErrInvalidCredentials
	}
	commonlog.Infof("event=auth action=login status=ok user_id=%d", user.ID)
	return s.issue(user)
}

func (s *AuthService) issue(user domain.User) (Session, error) {
	token, err := s.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}
	return Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

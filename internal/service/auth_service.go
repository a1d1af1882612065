package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

const minPasswordLen = 6

// AuthService covers signup, account approval, login and bearer sessions.
type AuthService struct {
	users    *repository.UserRepository
	reqs     *repository.RequestRepository
	sessions *repository.SessionRepository
	clock    Clock
	ttl      time.Duration
}

func NewAuthService(users *repository.UserRepository, reqs *repository.RequestRepository, sessions *repository.SessionRepository, clock Clock, ttl time.Duration) *AuthService {
	return &AuthService{users: users, reqs: reqs, sessions: sessions, clock: clock, ttl: ttl}
}

// SignUp records a pending account request. An existing pending request for
// the same name is returned as-is.
func (s *AuthService) SignUp(ctx context.Context, name, password string) (*model.AccountRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if _, err := s.users.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: name %q is taken", ErrValidation, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing, err := s.reqs.FindPendingAccountByName(ctx, name); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	req := model.AccountRequest{Name: name, PasswordHash: string(hash), Status: model.RequestPending}
	if err := s.reqs.CreateAccount(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListAccountRequests returns pending signups, admin only.
func (s *AuthService) ListAccountRequests(ctx context.Context, actor model.User) ([]model.AccountRequest, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return s.reqs.ListPendingAccounts(ctx)
}

// ResolveAccountRequest approves or rejects a signup. Approval creates the
// user in the same transaction.
func (s *AuthService) ResolveAccountRequest(ctx context.Context, actor model.User, requestID uint, approve bool) (*model.User, error) {
	req, err := s.reqs.FindAccountByID(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if req.Status != model.RequestPending {
		return nil, fmt.Errorf("%w: request already resolved", ErrValidation)
	}
	status := model.RequestRejected
	if approve {
		status = model.RequestApproved
	}
	return s.reqs.ResolveAccount(ctx, req.ID, status, actor.ID)
}

// Login verifies the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, name, password string) (*model.Session, *model.User, error) {
	user, err := s.users.FindByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	session := model.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		return nil, nil, err
	}
	return &session, user, nil
}

// Logout revokes the token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteByToken(ctx, token)
}

// Authenticate resolves a bearer token to its user. Expired sessions are
// revoked on sight.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidCredentials
	}
	session, err := s.sessions.FindByToken(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !session.ExpiresAt.After(s.clock.Now()) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			log.Printf("[warn] drop expired session: %v", err)
		}
		return nil, ErrInvalidCredentials
	}
	return s.users.FindByID(ctx, session.UserID)
}

// LinkTelegramChat stores the chat the actor's daily digest is sent to.
// A zero chat id removes the link, which silently drops the actor from
// digest delivery.
func (s *AuthService) LinkTelegramChat(ctx context.Context, actor model.User, chatID int64) error {
	return s.users.SetTelegramChat(ctx, actor.ID, chatID)
}

// EnsureAdmin seeds a bootstrap admin when no admin account exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, password string) error {
	n, err := s.users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if name == "" || len(password) < minPasswordLen {
		return fmt.Errorf("%w: bootstrap admin needs a name and a password of at least %d characters", ErrValidation, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := model.User{Name: name, PasswordHash: string(hash), IsAdmin: true}
	if err := s.users.Create(ctx, &admin); err != nil {
		return err
	}
	log.Printf("[info] seeded bootstrap admin %q", name)
	return nil
}

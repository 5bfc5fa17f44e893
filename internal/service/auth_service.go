package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var sessionEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// AuthService issues and validates database-backed sessions.
type AuthService struct {
	db       *gorm.DB
	users    *repository.UserRepository
	notifier Notifier
	audit    *AuditService
	ttl      time.Duration
	log      *zap.Logger

	now func() time.Time
}

func NewAuthService(db *gorm.DB, notifier Notifier, audit *AuditService, ttl time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		db:       db,
		users:    repository.NewUserRepository(db),
		notifier: notifier,
		audit:    audit,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// Signup registers a CLIENT and opens a session for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, *model.Session, error) {
	u, err := createUser(ctx, s.users, in.Email, in.Password, in.Name, model.RoleClient)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.createSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	s.notifier.Welcome(*u)
	return u, sess, nil
}

// Login checks credentials. Unknown email and wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil, errs.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, nil, errs.ErrInvalidCredentials
	}
	sess, err := s.createSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	s.audit.Log(ctx, AuditLogin, "USER", u.ID, u.ID, nil)
	return u, sess, nil
}

// Logout deletes the session. Unknown ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&model.Session{}, "id = ?", sessionID).Error
}

// Validate resolves a session id to its user. When less than half the TTL remains the
// expiry is pushed out and extended is true so the caller can re-issue the cookie.
// Validate never creates a session.
func (s *AuthService) Validate(ctx context.Context, sessionID string) (u *model.User, sess *model.Session, extended bool, err error) {
	if sessionID == "" {
		return nil, nil, false, errs.ErrUnauthorized
	}
	var row model.Session
	err = s.db.WithContext(ctx).Preload("User").First(&row, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, false, errs.ErrUnauthorized
		}
		return nil, nil, false, err
	}
	now := s.now()
	if !now.Before(row.ExpiresAt) || row.User == nil {
		if err := s.Logout(ctx, row.ID); err != nil {
			s.log.Warn("delete expired session", zap.Error(err))
		}
		return nil, nil, false, errs.ErrUnauthorized
	}
	if row.ExpiresAt.Sub(now) < s.ttl/2 {
		expires := now.Add(s.ttl)
		if err := s.db.WithContext(ctx).Model(&row).Update("expires_at", expires).Error; err != nil {
			return nil, nil, false, err
		}
		row.ExpiresAt = expires
		extended = true
	}
	return row.User, &row, extended, nil
}

// LoginAs opens a session as another user. ADMIN only.
func (s *AuthService) LoginAs(ctx context.Context, actor Actor, userID string) (*model.User, *model.Session, error) {
	if actor.Role != model.RoleAdmin {
		return nil, nil, errs.Forbidden("only admins can use this feature")
	}
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.createSession(ctx, target.ID)
	if err != nil {
		return nil, nil, err
	}
	s.audit.Log(ctx, AuditLoginAs, "USER", target.ID, actor.ID, map[string]interface{}{
		"targetEmail": target.Email,
	})
	return target, sess, nil
}

// TTL is how long a fresh session lives.
func (s *AuthService) TTL() time.Duration { return s.ttl }

func (s *AuthService) createSession(ctx context.Context, userID string) (*model.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	sess := &model.Session{ID: id, UserID: userID, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

func newSessionID() (string, error) {
	b := make([]byte, 25)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToLower(sessionEncoding.EncodeToString(b)), nil
}

// createUser validates and stores a user with a bcrypt hash.
func createUser(ctx context.Context, users *repository.UserRepository, email, password, name string, role model.Role) (*model.User, error) {
	email = repository.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, errs.Validation("invalid email address")
	case len(password) < minPasswordLength:
		return nil, errs.Validation("password must be at least 6 characters")
	case name == "":
		return nil, errs.Validation("name is required")
	case !role.Valid():
		return nil, errs.Validation("invalid role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     role,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

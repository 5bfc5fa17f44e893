package service

import (
	"context"
	"errors"
	"strings"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/repository"
	"gorm.io/gorm"
)

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{users: repository.NewUserRepository(db)}
}

// List is open to staff, who pick clients and advisors from it.
func (s *UserService) List(ctx context.Context, actor Actor, role model.Role) ([]model.User, error) {
	if !actor.Role.Staff() {
		return nil, errs.Forbidden("forbidden")
	}
	if role != "" && !role.Valid() {
		return nil, errs.Validation("invalid role")
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     model.Role
}

func (s *UserService) Create(ctx context.Context, actor Actor, in CreateUserInput) (*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, errs.Forbidden("admin access required")
	}
	return createUser(ctx, s.users, in.Email, in.Password, in.Name, in.Role)
}

type UpdateUserInput struct {
	Name *string
	Role *model.Role
}

func (s *UserService) Update(ctx context.Context, actor Actor, id string, in UpdateUserInput) (*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, errs.Forbidden("admin access required")
	}
	changes := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errs.Validation("name is required")
		}
		changes["name"] = name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, errs.Validation("invalid role")
		}
		changes["role"] = *in.Role
	}
	if len(changes) == 0 {
		return s.users.FindByID(ctx, id)
	}
	return s.users.Update(ctx, id, changes)
}

// EnsureAdmin creates an ADMIN account unless one with the same email exists.
// An existing account is returned untouched; created reports which case applied.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string) (*model.User, bool, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, false, err
	}
	u, err = createUser(ctx, s.users, email, password, name, model.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

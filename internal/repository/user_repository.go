package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/model"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Create inserts u. A taken email yields errs.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns users ordered by name, optionally narrowed to one role.
func (r *UserRepository) List(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	tx := r.db.WithContext(ctx).Order("name ASC")
	if role != "" {
		tx = tx.Where("role = ?", role)
	}
	return users, tx.Find(&users).Error
}

func (r *UserRepository) Update(ctx context.Context, id string, changes map[string]interface{}) (*model.User, error) {
	res := r.db.WithContext(ctx).Model(&model.User{ID: id}).Updates(changes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"gorm.io/gorm"
)

// GormUserRepository backs the user directory with Postgres for
// production deployments. Uniqueness is enforced by the database indexes,
// so the create path stays race-free without an explicit lock.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(email))
}

func (r *GormUserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.findOne(ctx, "phone = ?", phone)
}

func (r *GormUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "google_id = ?", googleID)
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	user.ID = NewUserID()
	user.Email = strings.ToLower(user.Email)
	user.TokenVersion = 0
	user.CreatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateIdentity
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

func (r *GormUserRepository) UpdatePassword(ctx context.Context, id, passwordHash, passwordSalt string) error {
	// Unknown ids simply match zero rows.
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"password_salt": passwordSalt,
			"token_version": gorm.Expr("token_version + 1"),
		}).Error
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

func (r *GormUserRepository) LinkGoogleID(ctx context.Context, id, googleID string) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("google_id", googleID).Error
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return &user, nil
}

package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
)

// userGorm はUserRepositoryインターフェースのGORM実装です。
type userGorm struct {
	db *gorm.DB
}

// userGormがUserRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.UserRepository = (*userGorm)(nil)

// NewUserGorm は指定されたgorm.DB接続でuserGormの新しいインスタンスを生成します。
func NewUserGorm(db *gorm.DB) *userGorm {
	return &userGorm{db: db}
}

// Create はユーザーをデータベースに追加します。
// 同じメールアドレスのユーザーが既に存在する場合、usecase.ErrEmailAlreadyExistsを返します。
func (r *userGorm) Create(ctx context.Context, u *entity.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	if err := conn(ctx, r.db).Create(u).Error; err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrEmailAlreadyExists
		}
		return err
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
// ユーザーが存在しない場合、usecase.ErrUserNotFoundを返します。
func (r *userGorm) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := conn(ctx, r.db).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByID はIDでユーザーを取得します。
func (r *userGorm) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	var u entity.User
	if err := conn(ctx, r.db).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Confirm marks the user as confirmed. Confirming twice is not an error.
func (r *userGorm) Confirm(ctx context.Context, email string) error {
	result := conn(ctx, r.db).
		Model(&entity.User{}).
		Where("email = ?", email).
		Update("confirmed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return usecase.ErrUserNotFound
	}
	return nil
}

// UpdateProfile はnilでない項目だけを更新し、更新後のユーザーを返します。
// 空文字のアバターはNULLに戻します。
func (r *userGorm) UpdateProfile(ctx context.Context, id uint, nickname, avatar *string) (*entity.User, error) {
	updates := map[string]any{}
	if nickname != nil {
		updates["nickname"] = *nickname
	}
	if avatar != nil {
		if *avatar == "" {
			updates["avatar"] = nil
		} else {
			updates["avatar"] = *avatar
		}
	}
	if len(updates) > 0 {
		result := conn(ctx, r.db).
			Model(&entity.User{}).
			Where("id = ?", id).
			Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, usecase.ErrUserNotFound
		}
	}
	return r.FindByID(ctx, id)
}

// Delete removes a user by ID.
func (r *userGorm) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&entity.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return usecase.ErrUserNotFound
	}
	return nil
}

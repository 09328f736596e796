// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bookstorage/internal/model"
	"github.com/hitoshi/bookstorage/internal/repository"
	"github.com/hitoshi/bookstorage/internal/security"
)

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// CreateInput はユーザー作成の入力。
// Rolesが空の場合はUSERが付与される。
type CreateInput struct {
	Username string
	Password string
	Roles    []model.Role
}

// UpdateInput はユーザー更新の入力。ロールは更新対象外。
type UpdateInput struct {
	Username string
	Password string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, hasher PasswordHasher) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
	}
}

// GetByID は指定IDのユーザーを返す。
func (s *Service) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// GetByUsername はユーザー名でユーザーを返す。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUsernameNotFoundError(username)
	}
	return user, nil
}

// GetAll は全ユーザーを返す。0件の場合は空スライス。
func (s *Service) GetAll(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// Create はユーザーを作成する。
// 同名の有効ユーザーが存在する場合はKindDuplicateを返し、書き込みは行わない。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	existing, err := s.userRepo.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUsernameError(in.Username)
	}

	roles, err := normalizeRoles(in.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		PasswordHash: hash,
		Roles:        roles,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("ユーザーを作成しました",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Update は指定IDのユーザーのユーザー名とパスワードを更新する。
// ユーザー名の重複チェックは自分自身を除外して行う。
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}

	if in.Username != user.Username {
		other, err := s.userRepo.FindByUsername(ctx, in.Username)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, model.NewDuplicateUsernameError(in.Username)
		}
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user.Username = in.Username
	user.PasswordHash = hash
	if err := s.userRepo.Update(ctx, user); err != nil {
		if model.KindOf(err) == model.KindIntegrityConflict {
			return nil, err
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	slog.Info("ユーザーを更新しました", slog.Int64("user_id", id))
	return user, nil
}

// SoftDelete は指定IDのユーザーを論理削除する。
// 削除後のユーザーは全ての読み取りから除外され、ユーザー名は再利用可能になる。
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(id)
	}

	if err := s.userRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザーを論理削除しました", slog.Int64("user_id", id))
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", model.NewValidationError(map[string]string{
			"password": "password must be at most 72 bytes",
		})
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// normalizeRoles は重複を除いたロール集合を返す。空の場合はUSER。
func normalizeRoles(roles []model.Role) ([]model.Role, error) {
	if len(roles) == 0 {
		return []model.Role{model.RoleUser}, nil
	}
	out := make([]model.Role, 0, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			return nil, model.NewBadRequestError(fmt.Sprintf("unknown role %q", r))
		}
		if !model.ContainsRole(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

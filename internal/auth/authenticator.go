package auth

import (
	"context"
	"fmt"

	"github.com/hitoshi/bookstorage/internal/model"
)

// CredentialStore はユーザー名からユーザーを引く認証情報ストア。
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// PasswordVerifier はパスワードハッシュの照合を行う。
type PasswordVerifier interface {
	Compare(hash, password string) bool
	CompareDummy(password string)
}

// Authenticator はユーザー名とパスワードでユーザーを認証する。
type Authenticator struct {
	users    CredentialStore
	verifier PasswordVerifier
}

// NewAuthenticator はAuthenticatorを生成する。
func NewAuthenticator(users CredentialStore, verifier PasswordVerifier) *Authenticator {
	return &Authenticator{users: users, verifier: verifier}
}

// Authenticate は認証に成功したユーザーを返す。
// 未登録ユーザーとパスワード不一致はどちらもKindBadCredentialsとなる。
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		a.verifier.CompareDummy(password)
		return nil, model.NewBadCredentialsError(username)
	}
	if !a.verifier.Compare(user.PasswordHash, password) {
		return nil, model.NewBadCredentialsError(username)
	}
	return user, nil
}

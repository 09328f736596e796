// Package auth はJWTによるログイン・トークン更新・ユーザー登録を提供する。
package auth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/bookstorage/internal/model"
	"github.com/hitoshi/bookstorage/internal/user"
)

// 認証結果のメトリクスラベル。
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// UserRegistrar は新規ユーザーを作成する。
type UserRegistrar interface {
	Create(ctx context.Context, input user.CreateInput) (*model.User, error)
}

// Recorder は認証系の結果を記録する。
type Recorder interface {
	ObserveLogin(outcome string)
	ObserveTokenRefresh(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveLogin(string)        {}
func (noopRecorder) ObserveTokenRefresh(string) {}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	authn    *Authenticator
	tokens   *TokenProvider
	users    UserRegistrar
	recorder Recorder
}

// NewService はServiceを生成する。recorderがnilの場合は記録しない。
func NewService(authn *Authenticator, tokens *TokenProvider, users UserRegistrar, recorder Recorder) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		authn:    authn,
		tokens:   tokens,
		users:    users,
		recorder: recorder,
	}
}

// Login はユーザー名とパスワードを検証し、トークンの組を発行する。
func (s *Service) Login(ctx context.Context, username, password string) (*model.TokenPair, error) {
	u, err := s.authn.Authenticate(ctx, username, password)
	if err != nil {
		s.recorder.ObserveLogin(outcomeFor(err))
		slog.Info("login rejected",
			slog.String("username", username),
			slog.String("kind", model.KindOf(err).String()),
		)
		return nil, err
	}

	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		s.recorder.ObserveLogin(OutcomeError)
		return nil, err
	}

	s.recorder.ObserveLogin(OutcomeSuccess)
	slog.Info("user logged in",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
	)
	return pair, nil
}

// Refresh はリフレッシュトークンから新しいトークンの組を発行する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	pair, err := s.tokens.RefreshUserTokens(ctx, refreshToken)
	if err != nil {
		s.recorder.ObserveTokenRefresh(outcomeFor(err))
		return nil, err
	}
	s.recorder.ObserveTokenRefresh(OutcomeSuccess)
	return pair, nil
}

// Register は一般ユーザーとして新規登録する。ロールは常にUSERとなる。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	return s.users.Create(ctx, user.CreateInput{
		Username: username,
		Password: password,
		Roles:    []model.Role{model.RoleUser},
	})
}

func outcomeFor(err error) string {
	switch model.KindOf(err) {
	case model.KindBadCredentials, model.KindAuthFailed:
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

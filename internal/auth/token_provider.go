package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/bookstorage/internal/model"
)

// TokenType はJWTの用途（typクレーム）を表す。
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims はアクセストークン・リフレッシュトークン共通のクレーム。
// rolesはアクセストークンにのみ含まれる。
type Claims struct {
	Username string       `json:"username"`
	Roles    []model.Role `json:"roles,omitempty"`
	Type     TokenType    `json:"typ"`
	jwt.RegisteredClaims
}

// UserID はsubクレームをユーザーIDとして解釈する。
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// UserLoader はリフレッシュ時にユーザーを再読込するためのインターフェース。
// 論理削除済みユーザーはnilとして返ること。
type UserLoader interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// TokenProviderConfig はトークン発行の設定。
type TokenProviderConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenProvider はHS256署名のJWTを発行・検証する。
type TokenProvider struct {
	config TokenProviderConfig
	users  UserLoader
	now    func() time.Time
}

// NewTokenProvider はTokenProviderを生成する。
func NewTokenProvider(config TokenProviderConfig, users UserLoader) *TokenProvider {
	return &TokenProvider{
		config: config,
		users:  users,
		now:    time.Now,
	}
}

// CreateAccessToken はロールを含むアクセストークンを発行する。
func (p *TokenProvider) CreateAccessToken(id int64, username string, roles []model.Role) (string, error) {
	return p.sign(id, username, roles, TokenTypeAccess, p.config.AccessTTL)
}

// CreateRefreshToken はリフレッシュトークンを発行する。ロールは含めない。
func (p *TokenProvider) CreateRefreshToken(id int64, username string) (string, error) {
	return p.sign(id, username, nil, TokenTypeRefresh, p.config.RefreshTTL)
}

// ParseAccessToken はアクセストークンを検証しクレームを返す。
// 署名不正・期限切れ・発行者不一致・typ不一致はKindAuthFailedとなる。
func (p *TokenProvider) ParseAccessToken(token string) (*Claims, error) {
	return p.parse(token, TokenTypeAccess)
}

// RefreshUserTokens はリフレッシュトークンを検証し、新しいトークンの組を発行する。
// ロールはストレージから再取得したユーザーのものを使う。
// いずれかの検証に失敗した場合はトークンを発行せずKindAuthFailedを返す。
func (p *TokenProvider) RefreshUserTokens(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := p.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, model.NewAuthFailedError("invalid token subject", err)
	}

	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthFailedError("user no longer exists", nil)
	}

	return p.IssuePair(user)
}

// IssuePair はユーザーに対してアクセストークンとリフレッシュトークンを発行する。
func (p *TokenProvider) IssuePair(user *model.User) (*model.TokenPair, error) {
	access, err := p.CreateAccessToken(user.ID, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}
	refresh, err := p.CreateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{
		ID:           user.ID,
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (p *TokenProvider) sign(id int64, username string, roles []model.Role, typ TokenType, ttl time.Duration) (string, error) {
	now := p.now()
	claims := &Claims{
		Username: username,
		Roles:    roles,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			Issuer:    p.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.config.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (p *TokenProvider) parse(token string, want TokenType) (*Claims, error) {
	if token == "" {
		return nil, model.NewAuthFailedError("missing token", nil)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return p.config.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.NewAuthFailedError("token expired", err)
		}
		return nil, model.NewAuthFailedError("invalid token", err)
	}
	if claims.Type != want {
		return nil, model.NewAuthFailedError(fmt.Sprintf("unexpected token type %q", claims.Type), nil)
	}
	return claims, nil
}

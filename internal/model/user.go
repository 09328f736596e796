// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーのロールを表す。
type Role string

const (
	// RoleAdmin は全リソースを操作できる管理者ロール。
	RoleAdmin Role = "ADMIN"
	// RoleUser は一般ユーザーロール。
	RoleUser Role = "USER"
)

// Valid は定義済みのロールかを判定する。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User はサービス利用ユーザーを表す。
// Deletedがtrueのユーザーは論理削除済みで、全ての読み取りから除外される。
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Roles        []Role
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole はユーザーが指定ロールを持つかを判定する。
func (u *User) HasRole(role Role) bool {
	return ContainsRole(u.Roles, role)
}

// ContainsRole はロール集合に指定ロールが含まれるかを判定する。
func ContainsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenPair はログイン・リフレッシュ時に返すトークンの組。
type TokenPair struct {
	ID           int64
	Username     string
	AccessToken  string
	RefreshToken string
}

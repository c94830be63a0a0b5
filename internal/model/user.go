// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（認証済みプリンシパル）を表す。
// emailで一意に識別され、再ログイン時はアバターのみ更新される。
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

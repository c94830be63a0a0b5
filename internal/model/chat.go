package model

import "time"

// Chat はユーザーと記事URLの組ごとに1行だけ保持される会話ターンを表す。
// ArticleContentは初回作成時に取得した本文で、以後上書きされない。
// Messageは最新のメッセージで、送信のたびに置き換えられる。
type Chat struct {
	UserID         string
	ArticleURL     string
	ArticleContent string
	Message        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

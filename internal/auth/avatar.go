package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	discordCDNBaseURL = "https://cdn.discordapp.com"
	gravatarBaseURL   = "https://www.gravatar.com/avatar"
)

// AvatarURL はプロフィールからアバターURLを決定する。
// アバターハッシュがあればDiscord CDNのURL（a_で始まる場合はgif）、
// 無ければメールアドレスから導出したGravatarのidenticonを返す。
// 同じ入力に対して常に同じ値を返す。
// Gravatarはメールアドレスを小文字化してハッシュするため、大文字小文字や前後空白
// だけが異なるアドレスはプロフィールIDに関係なく同じアバターになる。
func AvatarURL(profileID, avatarHash, email string) string {
	if avatarHash != "" {
		ext := "png"
		if strings.HasPrefix(avatarHash, "a_") {
			ext = "gif"
		}
		return fmt.Sprintf("%s/avatars/%s/%s.%s", discordCDNBaseURL, profileID, avatarHash, ext)
	}

	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("%s/%s?d=identicon", gravatarBaseURL, hex.EncodeToString(sum[:]))
}

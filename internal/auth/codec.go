package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/1Browser/backend/internal/model"
)

// Claims はセッショントークンのペイロード。
// exp/iatは登録済みクレームとして、user_idは独自クレームとして保持する。
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Codec はセッショントークンの発行と検証を行う。
// 署名鍵はプロセス内で不変で、ストレージへのアクセスは行わない。
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec は署名鍵を指定してCodecを生成する。鍵が空の場合はエラーを返す。
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Issue はuserIDとttlからHS256署名済みトークンを発行する。
func (c *Codec) Issue(userID string, ttl time.Duration) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify は署名を検証した後にクレームを取り出す。
// 署名不一致・構造不正・期限切れ・user_idの欠落やuuid以外の値はすべてErrInvalidTokenとなる。
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user_id claim is missing", model.ErrInvalidToken)
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: user_id claim is not a uuid: %w", model.ErrInvalidToken, err)
	}

	return claims, nil
}

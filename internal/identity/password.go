package identity

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost はオフライン総当たり攻撃に耐えるためのワークファクタ。
const bcryptCost = 12

// HashPassword は平文パスワードをbcryptでハッシュ化する。
// 暗号プリミティブの失敗時のみエラーを返す。
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードとハッシュの照合を行う。
// 不一致はエラーではなくfalseを返す。
// エラーを返すのはハッシュが壊れている等の内部失敗の場合のみ。
func VerifyPassword(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify password: %w", err)
}

package users

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooWeak
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// no 0/O/1/l
const tempAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func temporaryPassword(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(tempAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempAlphabet[idx.Int64()]
	}
	return string(out), nil
}

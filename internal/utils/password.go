package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when an account does not exist so both
// login failure paths spend the same bcrypt work.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("kalam-dummy-password"), bcrypt.DefaultCost)

func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func CheckPassword(password, hashedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// BurnPasswordCheck runs a comparison that always fails.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

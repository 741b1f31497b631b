// Package auth covers credential checking and bearer token issuance.
package auth

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
)

// Service validates username/password pairs against a fixed credential
// set. There is no registration flow; accounts are provisioned up front.
type Service struct {
	users map[string]string
}

// NewService builds the service from a credential map. A nil map loads
// the built-in development accounts (admin plus user1..user10).
func NewService(users map[string]string) *Service {
	if users == nil {
		users = map[string]string{"admin": "admin123"}
		for i := 1; i <= 10; i++ {
			users[fmt.Sprintf("user%d", i)] = fmt.Sprintf("pass%d", i)
		}
	}
	return &Service{users: users}
}

// Authenticate reports whether the password matches. An unknown username
// returns ErrUserNotFound; a wrong password returns false with no error.
func (s *Service) Authenticate(username, password string) (bool, error) {
	stored, ok := s.users[username]
	if !ok {
		return false, ErrUserNotFound
	}
	return stored == password, nil
}

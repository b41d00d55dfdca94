package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cashbox-api/internal/models"
)

// UserRepository resolves bearer tokens to directory users.
type UserRepository struct {
	mu      sync.RWMutex
	byToken map[string]models.User
}

func NewUserRepository(users []models.User) *UserRepository {
	r := &UserRepository{byToken: make(map[string]models.User, len(users))}
	for _, u := range users {
		r.byToken[u.Token] = u
	}
	return r
}

// ParseUsers reads entries of the form "token:id:name:role".
func ParseUsers(entries []string) ([]models.User, error) {
	users := make([]models.User, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		parts := strings.Split(e, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("user entry %q: want token:id:name:role", e)
		}
		role := models.ParseRole(parts[3])
		if role == models.RoleUnknown {
			return nil, fmt.Errorf("user entry %q: unknown role %q", e, parts[3])
		}
		if parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("user entry %q: token and id are required", e)
		}
		users = append(users, models.User{
			Token:  parts[0],
			UserID: parts[1],
			Name:   parts[2],
			Role:   role,
		})
	}
	return users, nil
}

func (r *UserRepository) GetUserByToken(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byToken[token]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

package service

import (
	"context"
	"strconv"
	"strings"

	"giftshop-bot/internal/model"
	"giftshop-bot/internal/repository"
)

type handleFinder interface {
	FindByHandle(ctx context.Context, handle string) (*model.User, error)
}

// TargetResolver turns admin input such as "123", "-5" or "@bob" into an identity.
type TargetResolver struct {
	users handleFinder
}

func NewTargetResolver(users handleFinder) *TargetResolver {
	return &TargetResolver{users: users}
}

// Resolve returns ErrUnresolved when token matches nothing.
func (r *TargetResolver) Resolve(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrUnresolved
	}
	if isSignedDigits(token) {
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return 0, ErrUnresolved
		}
		return id, nil
	}

	handle := strings.TrimPrefix(token, "@")
	if handle == "" {
		return 0, ErrUnresolved
	}
	user, err := r.users.FindByHandle(ctx, handle)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, ErrUnresolved
		}
		return 0, &PersistenceError{Op: "find user by handle", Err: err}
	}
	return user.PlatformID, nil
}

// ResolveWithRest resolves the first word of text and returns the remaining words joined by spaces.
func (r *TargetResolver) ResolveWithRest(ctx context.Context, text string) (int64, string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, "", ErrUnresolved
	}
	id, err := r.Resolve(ctx, fields[0])
	if err != nil {
		return 0, "", err
	}
	return id, strings.Join(fields[1:], " "), nil
}

func isSignedDigits(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

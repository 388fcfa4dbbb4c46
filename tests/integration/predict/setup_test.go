package predict_test

import (
	"context"

	userdomain "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/domain"
	userrepo "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/repository"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
)

func init() {
	// Init logger for all tests in this package
	logger.Init(logger.Config{Level: "debug", Format: "console"})
}

// MockUserRepository for testing
type MockUserRepository struct {
	users map[int64]*userdomain.User
}

func NewMockUserRepository(users ...*userdomain.User) *MockUserRepository {
	m := &MockUserRepository{users: make(map[int64]*userdomain.User)}
	for _, u := range users {
		m.users[u.UserID] = u
	}
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *userdomain.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID int64) (*userdomain.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, userrepo.ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByReferralCode(ctx context.Context, code string) (*userdomain.User, error) {
	for _, u := range m.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, userrepo.ErrUserNotFound
}

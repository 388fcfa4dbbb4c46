package wallet

import (
	"context"
	"sync"
)

// MockService implements Service with in-memory balances for tests
type MockService struct {
	balances map[int64]int64
	mu       sync.RWMutex
}

// NewMockService creates a new mock wallet service
func NewMockService() *MockService {
	return &MockService{balances: make(map[int64]int64)}
}

// SetBalance sets the balance for a user (for testing)
func (s *MockService) SetBalance(userID int64, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
}

// GetBalance returns the user's balance
func (s *MockService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[userID], nil
}

// AddBalance adds balance
func (s *MockService) AddBalance(ctx context.Context, userID int64, amount int64, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] += amount
	return s.balances[userID], nil
}

// DeductBalance deducts balance
func (s *MockService) DeductBalance(ctx context.Context, userID int64, amount int64, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[userID] < amount {
		return s.balances[userID], ErrInsufficientBalance
	}
	s.balances[userID] -= amount
	return s.balances[userID], nil
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"custreg/internal/domain"
)

// MockRegistryStore is a mock implementation of port.RegistryStore.
type MockRegistryStore struct {
	mock.Mock
}

func (m *MockRegistryStore) SaveRun(ctx context.Context, result *domain.RunResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

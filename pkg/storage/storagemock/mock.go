package storagemock

import (
	"context"

	"github.com/hdowatch/hdowatch/pkg/storage"
	"github.com/hdowatch/hdowatch/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) GetCachedSchedule(ctx context.Context) (types.CachedSchedule, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.CachedSchedule), args.Error(1)
	}
	return types.CachedSchedule{}, nil
}

func (m *MockDatabase) PutCachedSchedule(ctx context.Context, snapshot types.CachedSchedule) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}

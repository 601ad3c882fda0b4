package distributormock

import (
	"context"

	"github.com/hdowatch/hdowatch/pkg/distributor"
	"github.com/hdowatch/hdowatch/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

var _ distributor.Client = (*MockClient)(nil)

func (m *MockClient) GetSchedule(ctx context.Context, ean string) (types.SchedulePayload, error) {
	args := m.Called(ctx, ean)
	if len(args) > 0 {
		return args.Get(0).(types.SchedulePayload), args.Error(1)
	}
	return types.SchedulePayload{}, nil
}

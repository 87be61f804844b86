package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/geobridge/geo-agent/pkg/geolocation"
)

// LocationProvider is a mock implementation of geolocation.Provider
type LocationProvider struct {
	mock.Mock
}

func (m *LocationProvider) GetPosition(ctx context.Context, opts geolocation.Options) (geolocation.Position, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(geolocation.Position), args.Error(1)
}

func (m *LocationProvider) Watch(ctx context.Context, opts geolocation.Options) (<-chan geolocation.Update, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chan geolocation.Update), args.Error(1)
}

func (m *LocationProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

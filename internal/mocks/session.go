package mocks

import (
	"context"
	"io"

	"github.com/brettbedarf/mtpview"
	"github.com/stretchr/testify/mock"
)

// MockSession implements mtpview.Session for testing across packages
type MockSession struct {
	mock.Mock
}

func (m *MockSession) GetObjectHandles(ctx context.Context, storage mtpview.StorageID, format mtpview.ObjectFormat, parent mtpview.ObjectID) ([]mtpview.ObjectID, error) {
	args := m.Called(ctx, storage, format, parent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mtpview.ObjectID), args.Error(1)
}

func (m *MockSession) GetObjectInfo(ctx context.Context, id mtpview.ObjectID) (*mtpview.ObjectInfo, error) {
	args := m.Called(ctx, id)

	// Handle function return types (for tests needing fresh values per call)
	if fn, ok := args.Get(0).(func(mtpview.ObjectID) *mtpview.ObjectInfo); ok {
		return fn(id), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mtpview.ObjectInfo), args.Error(1)
}

func (m *MockSession) SetObjectProperty(ctx context.Context, id mtpview.ObjectID, prop mtpview.ObjectProperty, value string) error {
	args := m.Called(ctx, id, prop, value)
	return args.Error(0)
}

func (m *MockSession) DeleteObject(ctx context.Context, id mtpview.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSession) SendObjectInfo(ctx context.Context, info *mtpview.ObjectInfo, storage mtpview.StorageID, parent mtpview.ObjectID) (mtpview.NewObjectInfo, error) {
	args := m.Called(ctx, info, storage, parent)
	if args.Get(0) == nil {
		return mtpview.NewObjectInfo{}, args.Error(1)
	}
	return args.Get(0).(mtpview.NewObjectInfo), args.Error(1)
}

func (m *MockSession) SendObject(ctx context.Context, r io.Reader, size int64) error {
	args := m.Called(ctx, r, size)
	return args.Error(0)
}

func (m *MockSession) GetObject(ctx context.Context, id mtpview.ObjectID, w io.Writer) error {
	args := m.Called(ctx, id, w)
	return args.Error(0)
}

func (m *MockSession) GetDeviceInfo(ctx context.Context) (*mtpview.DeviceInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mtpview.DeviceInfo), args.Error(1)
}

func (m *MockSession) GetStorageIDs(ctx context.Context) ([]mtpview.StorageID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mtpview.StorageID), args.Error(1)
}

func (m *MockSession) GetStorageInfo(ctx context.Context, storage mtpview.StorageID) (*mtpview.StorageInfo, error) {
	args := m.Called(ctx, storage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mtpview.StorageInfo), args.Error(1)
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ mtpview.Session = (*MockSession)(nil)

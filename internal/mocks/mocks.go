// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/panelkeeper/internal/accounts"
	"github.com/xkilldash9x/panelkeeper/internal/login"
	"github.com/xkilldash9x/panelkeeper/internal/store"
)

// -- Notifier Mock --

// MockNotifier mocks notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendPhoto(ctx context.Context, path, caption string) error {
	args := m.Called(ctx, path, caption)
	return args.Error(0)
}

func (m *MockNotifier) SendReport(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

// -- Recorder Mock --

// MockRecorder mocks store.Recorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) SaveOutcome(ctx context.Context, rec store.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecorder) Recent(ctx context.Context, limit int) ([]store.Record, error) {
	args := m.Called(ctx, limit)
	records, _ := args.Get(0).([]store.Record)
	return records, args.Error(1)
}

func (m *MockRecorder) Close() error {
	return m.Called().Error(0)
}

// -- Authenticator Mock --

// MockAuthenticator mocks the per-account login step of the orchestrator.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, p login.Page, acc accounts.Account) login.Outcome {
	args := m.Called(ctx, p, acc)
	return args.Get(0).(login.Outcome)
}

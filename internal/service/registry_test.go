package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

type mockProvider struct {
	mock.Mock
	id       string
	category types.Category
}

func newMockProvider(id string) *mockProvider {
	return &mockProvider{id: id, category: types.CategoryFilesystem}
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "Stores documents for testing",
		Category:     m.category,
		Capabilities: []string{"read", "write"},
		Tools: []types.Tool{
			{ID: m.id + ".test", Name: "Test Tool", Returns: "string"},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	args := m.Called(ctx, toolID, params, appCtx)
	res, _ := args.Get(0).(*types.Result)
	return res, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordToolCall(service, tool, status string, d time.Duration) {
	m.Called(service, tool, status, d)
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("test")))

	_, ok := r.Get("test")
	assert.True(t, ok)

	err := r.Register(newMockProvider("test"))
	assert.ErrorIs(t, err, ErrDuplicateService)

	assert.Error(t, r.Register(newMockProvider("")))

	r.Unregister("test")
	_, ok = r.Get("test")
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	r := NewRegistry()
	system := newMockProvider("alpha")
	system.category = types.CategorySystem
	require.NoError(t, r.Register(newMockProvider("zeta")))
	require.NoError(t, r.Register(system))

	services := r.List(nil)
	require.Len(t, services, 2)
	assert.Equal(t, "alpha", services[0].ID)
	assert.Equal(t, "zeta", services[1].ID)

	cat := types.CategoryFilesystem
	filtered := r.List(&cat)
	require.Len(t, filtered, 1)
	assert.Equal(t, "zeta", filtered[0].ID)
}

func TestDiscover(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("storage")))
	require.NoError(t, r.Register(newMockProvider("other")))

	results := r.Discover("storage read documents", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "storage", results[0].ID)

	assert.Len(t, r.Discover("storage read documents", 1), 1)
	assert.Empty(t, r.Discover("zzz", 5))
}

func TestExecuteRoutesByPrefix(t *testing.T) {
	rec := &mockRecorder{}
	r := NewRegistry(WithRecorder(rec))

	p := newMockProvider("filesystem")
	require.NoError(t, r.Register(p))

	params := map[string]interface{}{"path": "/a.txt"}
	p.On("Execute", mock.Anything, "filesystem.transaction.commit", params, (*types.Context)(nil)).
		Return(&types.Result{Success: true}, nil).Once()
	rec.On("RecordToolCall", "filesystem", "filesystem.transaction.commit", StatusSuccess, mock.AnythingOfType("time.Duration")).Once()

	result, err := r.Execute(context.Background(), "filesystem.transaction.commit", params, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	p.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestExecuteReportsOutcome(t *testing.T) {
	rec := &mockRecorder{}
	r := NewRegistry(WithRecorder(rec))
	p := newMockProvider("fs")
	require.NoError(t, r.Register(p))

	msg := "nope"
	p.On("Execute", mock.Anything, "fs.fail", mock.Anything, mock.Anything).
		Return(&types.Result{Success: false, Error: &msg}, nil)
	p.On("Execute", mock.Anything, "fs.crash", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider fault"))
	rec.On("RecordToolCall", "fs", "fs.fail", StatusFailure, mock.Anything).Once()
	rec.On("RecordToolCall", "fs", "fs.crash", StatusError, mock.Anything).Once()

	result, err := r.Execute(context.Background(), "fs.fail", nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)

	_, err = r.Execute(context.Background(), "fs.crash", nil, nil)
	assert.EqualError(t, err, "provider fault")

	rec.AssertExpectations(t)
}

func TestExecuteRoutingErrors(t *testing.T) {
	r := NewRegistry()

	result, err := r.Execute(context.Background(), "noservice", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidToolID)
	require.NotNil(t, result)
	assert.False(t, result.Success)

	result, err = r.Execute(context.Background(), "missing.read", nil, nil)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.False(t, result.Success)
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("test1")))
	require.NoError(t, r.Register(newMockProvider("test2")))

	stats := r.Stats()
	assert.Equal(t, 2, stats["total_services"])
	assert.Equal(t, 2, stats["total_tools"])
	assert.Equal(t, map[string]int{"filesystem": 2}, stats["categories"])
}

package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemInfo(t *testing.T) {
	sys := NewProvider(Info{StorageBackend: "memory", CacheCapacity: 10}, 8)

	result, err := sys.Execute(context.Background(), "system.info", nil, nil)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.NotEmpty(t, result.Data["go_version"])
	assert.Equal(t, "memory", result.Data["instance"].(Info).StorageBackend)
}

func TestPing(t *testing.T) {
	sys := NewProvider(Info{}, 8)

	result, err := sys.Execute(context.Background(), "system.ping", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result.Data["pong"])
}

func TestActivityNewestFirst(t *testing.T) {
	sys := NewProvider(Info{}, 3)

	sys.RecordToolCall("filesystem", "filesystem.write", "success", time.Millisecond)
	sys.RecordToolCall("filesystem", "filesystem.read", "failure", time.Millisecond)
	sys.RecordToolCall("system", "system.ping", "success", time.Millisecond)
	sys.RecordToolCall("filesystem", "filesystem.delete", "success", time.Millisecond)
	sys.RecordToolCall("filesystem", "filesystem.move", "success", time.Millisecond)

	result, err := sys.Execute(context.Background(), "system.activity", map[string]interface{}{"limit": 10.0}, nil)
	require.NoError(t, err)

	calls := result.Data["calls"].([]Call)
	require.Len(t, calls, 3)
	assert.Equal(t, "filesystem.move", calls[0].Tool)
	assert.Equal(t, "filesystem.delete", calls[1].Tool)
	assert.Equal(t, "filesystem.read", calls[2].Tool)

	result, err = sys.Execute(context.Background(), "system.activity", map[string]interface{}{"status": "failure"}, nil)
	require.NoError(t, err)
	calls = result.Data["calls"].([]Call)
	require.Len(t, calls, 1)
	assert.Equal(t, "filesystem.read", calls[0].Tool)
}

func TestUnknownTool(t *testing.T) {
	sys := NewProvider(Info{}, 1)

	result, err := sys.Execute(context.Background(), "system.reboot", nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

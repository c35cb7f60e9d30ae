package internal_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makermindz/multi-player-game/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig 預設值
func TestDefaultConfig(t *testing.T) {
	cfg := internal.DefaultConfig()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.Game.RestartDelay.Std())
	assert.Equal(t, 15, cfg.Game.NameMaxLength)
	assert.Equal(t, 10, cfg.Game.LeaderboardSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

// TestLoadConfigMissingFile 檔案不存在時使用預設配置
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := internal.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, internal.DefaultConfig(), cfg)
}

// TestLoadConfigOverridesDefaults 檔案內容覆蓋在預設值之上
func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8080
  read_timeout: 30s
game:
  restart_delay: 250ms
  name_max_length: 20
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := internal.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Game.RestartDelay.Std())
	assert.Equal(t, 20, cfg.Game.NameMaxLength)
	assert.Equal(t, "json", cfg.Log.Format)

	// 未指定的欄位保留預設
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout.Std())
	assert.Equal(t, 10, cfg.Game.LeaderboardSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoadConfigInvalid 錯誤內容
func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "broken yaml", content: "server: [not a map"},
		{name: "bad duration", content: "game:\n  restart_delay: soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := internal.LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

// TestDurationNanosecondFallback 純數字視為奈秒
func TestDurationNanosecondFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "game:\n  restart_delay: 1000000000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := internal.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Game.RestartDelay.Std())
}

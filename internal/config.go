package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 整個應用的配置
type Config struct {
	Server struct {
		Port         int      `yaml:"port"`
		ReadTimeout  Duration `yaml:"read_timeout"`
		WriteTimeout Duration `yaml:"write_timeout"`
		IdleTimeout  Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Game struct {
		// RestartDelay 勝負揭曉後到下一回合開始的延遲
		RestartDelay Duration `yaml:"restart_delay"`
		// NameMaxLength 玩家顯示名稱的最大長度（以 rune 計）
		NameMaxLength int `yaml:"name_max_length"`
		// LeaderboardSize 排行榜廣播的名次數量
		LeaderboardSize int `yaml:"leaderboard_size"`
	} `yaml:"game"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Duration 包裝 time.Duration，讓 yaml 能解析 "5s" 這類字串
type Duration time.Duration

// UnmarshalYAML 實作 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("無效的時間長度 %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	// 也接受純數字（視為奈秒）
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("無效的時間長度: %s", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std 轉回標準庫型別
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 3000
	cfg.Server.ReadTimeout = Duration(15 * time.Second)
	cfg.Server.WriteTimeout = Duration(15 * time.Second)
	cfg.Server.IdleTimeout = Duration(60 * time.Second)
	cfg.Game.RestartDelay = Duration(5 * time.Second)
	cfg.Game.NameMaxLength = 15
	cfg.Game.LeaderboardSize = 10
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// LoadConfig 載入配置檔案
//
// 檔案不存在時返回預設配置（部署時允許省略配置檔）。
// 檔案內容覆蓋在預設值之上，未指定的欄位保留預設。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("讀取配置檔案失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置檔案失敗: %w", err)
	}

	return cfg, nil
}

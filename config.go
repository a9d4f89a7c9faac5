package gtimer

import (
	"os"

	"github.com/godyy/gtimer/thread"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadConfig 从 YAML 文件加载定时器线程配置.
func LoadConfig(path string) (*thread.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "read config file")
	}
	return ParseConfig(data)
}

// ParseConfig 解析 YAML 格式的定时器线程配置. 时长字段使用 Go 时长
// 字符串, 如 "250us", "1ms", "10s".
func ParseConfig(data []byte) (*thread.Config, error) {
	var cfg thread.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, pkgerrors.WithMessage(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
)

type Log struct {
	Level   string `config:"level"`
	Console bool   `config:"console"`
}

// Forward configures the optional Pulsar mirror of received events.
// An empty URL disables it.
type Forward struct {
	URL   string `config:"url"`
	Topic string `config:"topic"`
	Name  string `config:"name"`
}

type Config struct {
	Addr            string  `config:"addr"`
	WsAddr          string  `config:"ws_addr"`
	PublicURL       string  `config:"public_url"`
	WsURL           string  `config:"ws_url"`
	UpstreamTimeout string  `config:"upstream_timeout"`
	Log             Log     `config:"log"`
	Forward         Forward `config:"forward"`
}

func defaultConfig() Config {
	return Config{
		Addr:            ":3000",
		WsAddr:          ":8080",
		PublicURL:       "http://127.0.0.1:3000",
		WsURL:           "ws://localhost:8080",
		UpstreamTimeout: "10s",
		Log: Log{
			Level:   "info",
			Console: true,
		},
		Forward: Forward{
			Topic: "hookrelay-events",
			Name:  "hookrelay",
		},
	}
}

// NewConfig loads path and, when present, its ".local.yml" sibling on top.
// Keys missing from both files keep their defaults.
func NewConfig(path string) (*Config, error) {
	appConfig := defaultConfig()

	c := config.New("hookrelay")
	c.WithOptions(func(opt *config.Options) {
		opt.ParseEnv = true
		opt.DecoderConfig.TagName = "config"
	})

	c.AddDriver(yaml.Driver)

	if err := c.LoadFiles(path); err != nil {
		return nil, err
	}

	if err := c.LoadExists(strings.Replace(path, ".yml", ".local.yml", 1)); err != nil {
		return nil, err
	}

	if err := c.BindStruct("", &appConfig); err != nil {
		return nil, err
	}

	if _, err := appConfig.Timeout(); err != nil {
		return nil, err
	}

	appConfig.PublicURL = strings.TrimSuffix(appConfig.PublicURL, "/")

	return &appConfig, nil
}

func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.UpstreamTimeout)
	if err != nil {
		return 0, fmt.Errorf("upstream_timeout: %w", err)
	}

	return d, nil
}

package relay

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds the relay's upstream settings. The API key is only ever read
// from the environment.
type Config struct {
	Port      string `env:"PORT"            envDefault:"3001"`
	APIKey    string `env:"OPENAI_API_KEY"`
	BaseURL   string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ChatModel string `env:"CHAT_MODEL"      envDefault:"gpt-5.1"`
	TTSModel  string `env:"TTS_MODEL"       envDefault:"gpt-4o-mini-tts"`
}

func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parse env")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) hasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

package loader

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultURL        = "https://cubism.live2d.com/sdk-web/cubismcore/live2dcubismcore.min.js"
	DefaultSymbol     = "Live2DCubismCore"
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
)

// Policy configures one dependency load. The delay between retries is fixed.
type Policy struct {
	URL        string        `yaml:"url"`
	Symbol     string        `yaml:"symbol"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

func DefaultPolicy() Policy {
	return Policy{
		URL:        DefaultURL,
		Symbol:     DefaultSymbol,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

func (p Policy) Validate() error {
	if strings.TrimSpace(p.URL) == "" {
		return errors.New("policy: url is required")
	}
	if strings.TrimSpace(p.Symbol) == "" {
		return errors.New("policy: symbol is required")
	}
	if p.Timeout <= 0 {
		return errors.Errorf("policy: timeout must be positive, got %s", p.Timeout)
	}
	if p.MaxRetries < 0 {
		return errors.Errorf("policy: max_retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.RetryDelay < 0 {
		return errors.Errorf("policy: retry_delay must be >= 0, got %s", p.RetryDelay)
	}
	return nil
}

// Request is the first LoadRequest of the policy's attempt chain.
func (p Policy) Request() LoadRequest {
	return LoadRequest{URL: p.URL, Timeout: p.Timeout, MaxRetries: p.MaxRetries}
}

// LoadPolicyFile overlays a YAML file on top of DefaultPolicy.
func LoadPolicyFile(path string) (Policy, error) {
	p := DefaultPolicy()
	blob, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrapf(err, "read policy file %q", path)
	}
	if err := yaml.Unmarshal(blob, &p); err != nil {
		return p, errors.Wrapf(err, "parse policy file %q", path)
	}
	if err := p.Validate(); err != nil {
		return p, errors.Wrapf(err, "policy file %q", path)
	}
	return p, nil
}

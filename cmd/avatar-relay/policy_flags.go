package main

import (
	"context"

	"github.com/go-go-golems/avatar-relay/pkg/loader"
	"github.com/go-go-golems/avatar-relay/pkg/page"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type policyFlags struct {
	File   string
	Policy loader.Policy

	fs *pflag.FlagSet
}

func (f *policyFlags) register(fs *pflag.FlagSet) {
	f.fs = fs
	f.Policy = loader.DefaultPolicy()
	fs.StringVar(&f.File, "policy-file", "", "YAML file with url, symbol, timeout, max_retries, retry_delay")
	fs.StringVar(&f.Policy.URL, "core-url", f.Policy.URL, "URL of the core runtime script")
	fs.StringVar(&f.Policy.Symbol, "core-symbol", f.Policy.Symbol, "Global symbol the core script must define")
	fs.DurationVar(&f.Policy.Timeout, "core-timeout", f.Policy.Timeout, "Timeout for one load attempt")
	fs.IntVar(&f.Policy.MaxRetries, "core-retries", f.Policy.MaxRetries, "Additional attempts after the first failure")
	fs.DurationVar(&f.Policy.RetryDelay, "core-retry-delay", f.Policy.RetryDelay, "Fixed delay between attempts")
}

// resolve returns the flag values, or the policy file with any explicitly set
// --core-* flags applied on top of it.
func (f *policyFlags) resolve() (loader.Policy, error) {
	if f.File == "" {
		if err := f.Policy.Validate(); err != nil {
			return f.Policy, err
		}
		return f.Policy, nil
	}

	p, err := loader.LoadPolicyFile(f.File)
	if err != nil {
		return p, err
	}
	if f.changed("core-url") {
		p.URL = f.Policy.URL
	}
	if f.changed("core-symbol") {
		p.Symbol = f.Policy.Symbol
	}
	if f.changed("core-timeout") {
		p.Timeout = f.Policy.Timeout
	}
	if f.changed("core-retries") {
		p.MaxRetries = f.Policy.MaxRetries
	}
	if f.changed("core-retry-delay") {
		p.RetryDelay = f.Policy.RetryDelay
	}
	if err := p.Validate(); err != nil {
		return p, errors.Wrap(err, "flags over policy file")
	}
	return p, nil
}

func (f *policyFlags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// startWarmer opens a headless page and requests readiness once. Failures are
// only logged.
func startWarmer(ctx context.Context, policy loader.Policy) (*page.Page, *loader.Readiness, error) {
	pg := page.New(page.NewHTTPFetcher())
	gate, err := loader.New(pg, policy, loader.WithPublisher(pg))
	if err != nil {
		pg.Close()
		return nil, nil, errors.Wrap(err, "build core loader")
	}

	log.Info().Str("url", policy.URL).Str("symbol", policy.Symbol).Msg("warming core runtime")
	r := gate.Ready(ctx)
	go func() {
		<-r.Done()
		if err := r.Err(); err != nil {
			log.Error().Err(err).Str("component", "core-loader").Msg("core runtime unavailable")
			return
		}
		log.Info().Str("component", "core-loader").Str("symbol", policy.Symbol).Msg("core runtime ready")
	}()
	return pg, r, nil
}

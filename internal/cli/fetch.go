package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/deckwork/ipkey/pkg/clipboard"
	"github.com/deckwork/ipkey/pkg/config"
	"github.com/deckwork/ipkey/pkg/observability"
	"github.com/deckwork/ipkey/pkg/publicip"
)

// lookupFlags are shared by the commands that resolve the public address.
type lookupFlags struct {
	configPath string
	provider   string
	timeout    time.Duration
}

func (f *lookupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file path")
	cmd.Flags().StringVar(&f.provider, "provider", "", "lookup provider: ipify (default), icanhazip, ifconfig-me")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "per-provider lookup timeout")
}

// load reads the config file and applies the flag overrides.
func (f *lookupFlags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.provider != "" {
		cfg.Provider = f.provider
	}
	if f.timeout > 0 {
		cfg.Timeout = config.Duration{Duration: f.timeout}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// client builds a lookup client from the config file plus flag overrides.
func (f *lookupFlags) client() (*publicip.Client, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	return publicip.New(cfg.LookupOptions()...), nil
}

// providerRecorder captures which provider finally answered, via the
// lookup hooks.
type providerRecorder struct {
	observability.NoopFetchHooks
	mu       sync.Mutex
	provider string
}

func (r *providerRecorder) OnFetchComplete(_ context.Context, provider, _ string, _ time.Duration, err error) {
	if err != nil {
		return
	}
	r.mu.Lock()
	r.provider = provider
	r.mu.Unlock()
}

func (r *providerRecorder) name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.provider
}

// fetchResult is the --json output shape.
type fetchResult struct {
	Address  string `json:"address"`
	Provider string `json:"provider,omitempty"`
	Elapsed  string `json:"elapsed"`
}

// fetchCommand creates the fetch command for one-shot lookups.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		flags  lookupFlags
		copyIt bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Resolve the public IPv4 address and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			return c.runFetch(cmd.Context(), client, copyIt, asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&copyIt, "copy", false, "also copy the address to the clipboard")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, client *publicip.Client, copyIt, asJSON bool) error {
	recorder := &providerRecorder{}
	observability.SetFetchHooks(recorder)
	defer observability.Reset()

	spinner := newSpinner(ctx, "Resolving public address...")
	start := time.Now()
	addr, err := client.Fetch(ctx)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		spinner.StopWithError("Lookup failed")
		return err
	}
	spinner.Stop()

	if asJSON {
		out, err := json.Marshal(fetchResult{
			Address:  addr.String(),
			Provider: recorder.name(),
			Elapsed:  elapsed.String(),
		})
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printSuccess("%s", StyleHighlight.Render(addr.String()))
	printDetail("resolved in %s via %s", elapsed, recorder.name())

	if copyIt {
		clip := clipboard.New()
		if err := clip.Copy(ctx, addr.String()); err != nil {
			return err
		}
		printDetail("copied to clipboard (%s)", clip.Name())
		return nil
	}

	printNextStep("copy it", appName+" copy")
	return nil
}

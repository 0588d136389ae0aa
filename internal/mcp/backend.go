package mcp

import (
	"fmt"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"

	"github.com/sgahlot/signalctx/internal/config"
	"github.com/sgahlot/signalctx/internal/enrich"
	"github.com/sgahlot/signalctx/internal/identity"
	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/links"
)

// BackendFromConfig wires a Backend from loaded configuration. The returned
// client is nil when correlation is disabled. A nil kube leaves pod issue
// lookup unavailable.
func BackendFromConfig(cfg *config.Config, kube kubernetes.Interface, logger *zap.Logger) (Backend, *korrel8r.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := Backend{
		Window: cfg.Enrich.Window,
		Logger: logger,
	}

	var client *korrel8r.Client
	engineOpts := enrich.OptionsFromConfig(cfg)
	engineOpts.Logger = logger
	if cfg.Gate() == nil {
		token, err := cfg.Korrel8r.LoadToken()
		if err != nil {
			return Backend{}, nil, err
		}
		client, err = korrel8r.NewClient(korrel8r.ClientOptions{
			BaseURL:            cfg.Korrel8r.URL,
			Token:              token,
			CABundlePath:       cfg.Korrel8r.CABundle,
			InsecureSkipVerify: cfg.Korrel8r.InsecureSkipVerify,
			Timeout:            cfg.Korrel8r.Timeout(),
			RateLimit:          cfg.Korrel8r.RateLimit,
			RateBurst:          cfg.Korrel8r.RateBurst,
			Logger:             logger,
		})
		if err != nil {
			return Backend{}, nil, fmt.Errorf("failed to create korrel8r client: %w", err)
		}
		engineOpts.Source = client
		b.Source = client
		b.Graph = client
	}
	b.Engine = enrich.NewEngine(engineOpts)

	set, err := links.FromConfig(cfg.Links)
	if err != nil {
		return Backend{}, nil, fmt.Errorf("invalid links config: %w", err)
	}
	b.Links = set

	if kube != nil {
		b.PodIssues = identity.NewPodIssueFinder(kube, identity.PodIssueFinderOptions{Logger: logger})
	}
	return b, client, nil
}

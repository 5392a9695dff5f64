package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbyapp/nbyapp/internal/config"
	"github.com/nbyapp/nbyapp/internal/export"
	"github.com/nbyapp/nbyapp/internal/generator"
	"github.com/nbyapp/nbyapp/internal/llm"
	"github.com/nbyapp/nbyapp/internal/logging"
	"github.com/nbyapp/nbyapp/internal/metrics"
	"github.com/nbyapp/nbyapp/internal/status"
	"github.com/nbyapp/nbyapp/internal/store"
)

// Components are the wired pieces shared by the server and the CLI
type Components struct {
	Registry    *llm.Registry
	Providers   llm.Providers
	Store       store.Store
	Exporter    export.Exporter
	Metrics     *metrics.Metrics
	Broadcaster *status.Broadcaster
	Generator   *generator.Generator

	unsubscribe []func()
}

// Build wires every component described by cfg
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	registry, err := LoadRegistry(cfg.LLM.CatalogFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Service catalog loaded", zap.Int("services", len(registry.Services())))

	providers, err := llm.NewProviders(registry, ProviderConfig(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.LLM.UseMock {
		logger.Info("Mock mode enabled, provider calls are skipped")
	}

	st, err := store.Open(ctx, store.Config{
		Driver:    cfg.Store.Driver,
		DSN:       cfg.Store.DSN,
		CacheSize: cfg.Store.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	logger.Info("App store opened", zap.String("driver", cfg.Store.Driver))

	exporter, err := NewExporter(cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	m := metrics.New()
	broadcaster := status.NewBroadcaster()

	c := &Components{
		Registry:    registry,
		Providers:   providers,
		Store:       st,
		Exporter:    exporter,
		Metrics:     m,
		Broadcaster: broadcaster,
	}
	c.unsubscribe = append(c.unsubscribe, broadcaster.Subscribe(logging.StatusObserver(logger)))

	c.Generator = generator.NewGenerator(registry, providers, st, broadcaster, generator.Options{
		Timeout:   cfg.LLM.Timeout,
		MaxTokens: cfg.LLM.MaxTokens,
		MockMode:  cfg.LLM.UseMock,
		Exporter:  exporter,
		Metrics:   m,
		Logger:    logger,
	})

	return c, nil
}

// Close cancels any running generation and releases the store
func (c *Components) Close() error {
	c.Generator.Cancel()
	for _, fn := range c.unsubscribe {
		fn()
	}
	return c.Store.Close()
}

// LoadRegistry returns the built-in catalog, or the YAML catalog at path
func LoadRegistry(path string) (*llm.Registry, error) {
	if path == "" {
		return llm.DefaultRegistry()
	}
	reg, err := llm.LoadCatalogFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return reg, nil
}

// ProviderConfig maps the LLM settings onto provider endpoints
func ProviderConfig(cfg *config.Config) llm.ProviderConfig {
	return llm.ProviderConfig{
		ProxyURL: cfg.LLM.ProxyURL,
		BaseURLs: map[string]string{
			"openai":   cfg.LLM.OpenAIBaseURL,
			"claude":   cfg.LLM.AnthropicBaseURL,
			"deepseek": cfg.LLM.DeepSeekBaseURL,
		},
		Transport: llm.TransportConfig{
			MaxRetries: cfg.LLM.MaxRetries,
			RateLimit:  cfg.LLM.RateLimit,
		},
	}
}

// NewExporter combines the exporters enabled in cfg. It returns nil when none is.
func NewExporter(cfg *config.Config, logger *zap.Logger) (export.Exporter, error) {
	var exporters export.Multi

	if cfg.Export.Dir != "" {
		exporters = append(exporters, export.NewDiskExporter(cfg.Export.Dir))
		logger.Info("Disk export enabled", zap.String("dir", cfg.Export.Dir))
	}

	if cfg.Export.S3.Endpoint != "" {
		s3, err := export.NewS3Exporter(export.S3Config{
			Endpoint:  cfg.Export.S3.Endpoint,
			Region:    cfg.Export.S3.Region,
			AccessKey: cfg.Export.S3.AccessKey,
			SecretKey: cfg.Export.S3.SecretKey,
			Bucket:    cfg.Export.S3.Bucket,
			UseSSL:    cfg.Export.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, s3)
		logger.Info("S3 export enabled", zap.String("endpoint", cfg.Export.S3.Endpoint), zap.String("bucket", cfg.Export.S3.Bucket))
	}

	if cfg.GitHub.Token != "" {
		gh, err := export.NewGitHubPublisher(export.GitHubConfig{
			Token:      cfg.GitHub.Token,
			Owner:      cfg.GitHub.Owner,
			RepoPrefix: cfg.GitHub.RepoPrefix,
			Private:    cfg.GitHub.Private,
			TempDir:    cfg.GitHub.TempDir,
		})
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, gh)
		logger.Info("GitHub publishing enabled", zap.String("owner", cfg.GitHub.Owner))
	}

	switch len(exporters) {
	case 0:
		return nil, nil
	case 1:
		return exporters[0], nil
	default:
		return exporters, nil
	}
}

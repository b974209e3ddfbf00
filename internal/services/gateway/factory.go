package gateway

import (
	"context"
	"fmt"
	"log/slog"
)

// PaylinkConfig configures the paylink HTTP adapter.
type PaylinkConfig struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	MerchantID string `json:"merchant_id"`
}

// Factory creates gateway instances based on provider type.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a gateway instance for the given provider.
func (f *Factory) Create(ctx context.Context, provider Provider, config any) (Gateway, error) {
	switch provider {
	case ProviderPaylink:
		cfg, ok := config.(*PaylinkConfig)
		if !ok {
			return nil, fmt.Errorf("invalid paylink config type, expected *PaylinkConfig")
		}
		return NewPaylink(cfg)

	case ProviderMock:
		cfg, _ := config.(*MockConfig)
		return NewMock(cfg), nil

	default:
		return nil, fmt.Errorf("unsupported gateway provider: %s", provider)
	}
}

// SupportedProviders returns the list of known providers.
func (f *Factory) SupportedProviders() []Provider {
	return []Provider{ProviderPaylink, ProviderMock}
}

// Registry manages the configured gateway instances. The first registered
// provider becomes primary unless overridden.
type Registry struct {
	gateways map[Provider]Gateway
	factory  *Factory
	primary  Provider
}

func NewRegistry(factory *Factory) *Registry {
	return &Registry{
		gateways: make(map[Provider]Gateway),
		factory:  factory,
	}
}

func (r *Registry) Register(ctx context.Context, provider Provider, config any) error {
	gw, err := r.factory.Create(ctx, provider, config)
	if err != nil {
		return fmt.Errorf("failed to create %s gateway: %w", provider, err)
	}

	r.gateways[provider] = gw
	if r.primary == "" {
		r.primary = provider
	}
	return nil
}

func (r *Registry) Get(provider Provider) (Gateway, error) {
	gw, exists := r.gateways[provider]
	if !exists {
		return nil, fmt.Errorf("gateway provider %s not registered", provider)
	}
	return gw, nil
}

func (r *Registry) Primary() (Gateway, error) {
	if r.primary == "" {
		return nil, fmt.Errorf("no primary gateway configured")
	}
	return r.Get(r.primary)
}

func (r *Registry) SetPrimary(provider Provider) error {
	if _, exists := r.gateways[provider]; !exists {
		return fmt.Errorf("gateway provider %s not registered", provider)
	}
	r.primary = provider
	return nil
}

func (r *Registry) Close(ctx context.Context) error {
	for provider, gw := range r.gateways {
		if err := gw.Close(ctx); err != nil {
			slog.Error("closing gateway", "provider", provider, "error", err)
		}
	}
	return nil
}

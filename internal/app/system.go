package app

import (
	"time"

	"go.uber.org/zap"

	"quizard-service/internal/domain"
)

// SystemConfig wires one complete quizard deployment.
type SystemConfig struct {
	Admin            domain.Identity
	Distributor      domain.Identity
	CredentialName   string
	CredentialSymbol string
	Archive          Archive // optional
	Logger           *zap.Logger
	Clock            func() time.Time // optional, defaults to time.Now
}

// System bundles the wired components of one deployment.
type System struct {
	Registry *Registry
	Factory  *Factory
	Issuer   *Issuer
	Feed     *Feed
}

// NewSystem assembles registry, factory and issuer in dependency order:
// registry first, then the factory linked both ways, then the issuer bound
// to the registry, and finally the distributor. No quiz can be created and
// no credential minted until the corresponding linkage exists.
func NewSystem(cfg SystemConfig) (*System, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if cfg.Distributor.Zero() {
		return nil, domain.ErrMissingIdentity
	}

	registry, err := NewRegistry(cfg.Admin)
	if err != nil {
		return nil, err
	}
	feed := NewFeed()

	factory, err := newFactoryWithClock("quizard-factory", registry, feed, cfg.Archive, cfg.Logger, clock)
	if err != nil {
		return nil, err
	}
	if err := registry.SetFactory(cfg.Admin, factory.ID()); err != nil {
		return nil, err
	}

	issuer, err := newIssuerWithClock("quizard-credential-issuer", cfg.CredentialName, cfg.CredentialSymbol, registry, factory, feed, clock)
	if err != nil {
		return nil, err
	}
	if err := registry.SetCredentialIssuer(cfg.Admin, issuer.ID()); err != nil {
		return nil, err
	}
	if err := registry.SetDistributor(cfg.Admin, cfg.Distributor); err != nil {
		return nil, err
	}

	return &System{
		Registry: registry,
		Factory:  factory,
		Issuer:   issuer,
		Feed:     feed,
	}, nil
}

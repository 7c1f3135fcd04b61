// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arb-engine/internal/config"
	"github.com/fd1az/arb-engine/internal/di"
	"github.com/fd1az/arb-engine/internal/logger"
)

// Monolith gives bounded-context modules access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	Services() di.ServiceRegistry
}

// Module is a bounded context that registers its services and starts up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	ethClient *ethclient.Client
	container di.Container
}

// New creates the application container and dials the Ethereum RPC.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	ethClient, err := ethclient.Dial(cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, err
	}

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)

	return &app{
		config:    cfg,
		logger:    log,
		ethClient: ethClient,
		container: container,
	}, nil
}

func (a *app) Config() *config.Config         { return a.config }
func (a *app) Logger() logger.LoggerInterface { return a.logger }
func (a *app) EthClient() *ethclient.Client   { return a.ethClient }
func (a *app) Services() di.ServiceRegistry   { return a.container }

// Container returns the DI container for module registration.
func (a *app) Container() di.Container { return a.container }

// RegisterModules lets each module bind its services into the container.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts the modules in registration order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close releases shared resources.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}

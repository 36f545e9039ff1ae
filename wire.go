//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/tusharfilia/ottoai-backend/circuitbreaker"
	"github.com/tusharfilia/ottoai-backend/config"
	"github.com/tusharfilia/ottoai-backend/controllers"
	"github.com/tusharfilia/ottoai-backend/coordination"
	"github.com/tusharfilia/ottoai-backend/recovery"
	"github.com/tusharfilia/ottoai-backend/retention"
	"github.com/tusharfilia/ottoai-backend/storage"
)

var (
	configInjectorSet = wire.NewSet(config.GetConfigurationFromCLIConfig,
		wire.Bind(new(config.RelationalDatabaseConfig), new(*config.Config)),
		wire.Bind(new(config.HTTPConfig), new(*config.Config)),
		wire.Bind(new(config.CoordinationConfig), new(*config.Config)),
		wire.Bind(new(config.RecoveryProcessorConfig), new(*config.Config)),
		wire.Bind(new(config.SLADefaultsConfig), new(*config.Config)),
		wire.Bind(new(config.OutreachConfig), new(*config.Config)),
		wire.Bind(new(config.RetentionConfig), new(*config.Config)))
	storageInjectorSet = wire.NewSet(GetMigrationConfig, storage.GetNewDataAccessor,
		GetIdempotencyRepo, GetRecoveryItemRepo, GetAttemptRepo, GetTenantSLARepo)
	recoveryInjectorSet = wire.NewSet(coordination.LockManagerInjector, circuitbreaker.RegistryInjector,
		recovery.OutboundInjector, recovery.NewIntake, recovery.NewService, recovery.NewProcessorConfiguration, recovery.NewProcessor,
		wire.Bind(new(controllers.EventIngester), new(*recovery.Intake)),
		wire.Bind(new(controllers.ItemProcessor), new(*recovery.ProcessorImpl)),
		wire.Bind(new(controllers.ProcessorStatusSource), new(*recovery.ProcessorImpl)),
		wire.Bind(new(controllers.ReplyHandler), new(*recovery.Service)))
	serviceInjectorSet = wire.NewSet(configInjectorSet, storageInjectorSet, recoveryInjectorSet,
		retention.JanitorInjector, NewServerListener,
		wire.Bind(new(controllers.ServerLifecycleListener), new(*ServerLifecycleListenerImpl)),
		controllers.ControllerInjector,
		wire.Struct(new(HTTPServiceContainer), "Configuration", "Server", "DataAccessor", "Listener", "Processor", "Janitor"))
)

// GetAppVersion retrieves the app version
func GetAppVersion() config.AppVersion {
	wire.Build(config.GetVersion)

	return ""
}

// GetHTTPServiceContainer builds the full service from CLI args
func GetHTTPServiceContainer(cliConfig *config.CLIConfig) (*HTTPServiceContainer, error) {
	wire.Build(serviceInjectorSet)

	return &HTTPServiceContainer{}, nil
}

//go:build wireinject

package storage

import (
	"github.com/google/wire"
	"github.com/tusharfilia/ottoai-backend/config"
)

// GetNewDataAccessor provides the facade for accessing all the object repositories
func GetNewDataAccessor(dbConfig config.RelationalDatabaseConfig, slaDefaults config.SLADefaultsConfig, migrationConf *MigrationConfig) (DataAccessor, error) {
	wire.Build(RDBMSStorageInternalInjector)

	return nil, nil
}

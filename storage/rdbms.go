package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migrate_mysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migrate_sqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/google/wire"
	"github.com/tusharfilia/ottoai-backend/config"

	// MySQL DB Driver
	_ "github.com/go-sql-driver/mysql"
	// SQLite3 DB Driver
	_ "github.com/mattn/go-sqlite3"
	// File as a source for migration
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationConfig represents the DB migration config
type MigrationConfig struct {
	MigrationEnabled bool
	MigrationSource  string
}

// RelationalDBDataAccessor represents the DataAccessor implementation for RDBMS
type RelationalDBDataAccessor struct {
	idempotencyRepository  IdempotencyRepository
	recoveryItemRepository RecoveryItemRepository
	attemptRepository      AttemptRepository
	tenantSLARepository    TenantSLARepository
	db                     *sql.DB
}

// GetIdempotencyRepository returns the IdempotencyRepository to be used for dedup ledger ops
func (rdbmsDataAccessor *RelationalDBDataAccessor) GetIdempotencyRepository() IdempotencyRepository {
	return rdbmsDataAccessor.idempotencyRepository
}

// GetRecoveryItemRepository returns the RecoveryItemRepository to be used for recovery case ops
func (rdbmsDataAccessor *RelationalDBDataAccessor) GetRecoveryItemRepository() RecoveryItemRepository {
	return rdbmsDataAccessor.recoveryItemRepository
}

// GetAttemptRepository returns the AttemptRepository to be used for attempt log ops
func (rdbmsDataAccessor *RelationalDBDataAccessor) GetAttemptRepository() AttemptRepository {
	return rdbmsDataAccessor.attemptRepository
}

// GetTenantSLARepository returns the TenantSLARepository to be used for SLA policy ops
func (rdbmsDataAccessor *RelationalDBDataAccessor) GetTenantSLARepository() TenantSLARepository {
	return rdbmsDataAccessor.tenantSLARepository
}

// Close closes the connection to DB
func (rdbmsDataAccessor *RelationalDBDataAccessor) Close() {
	db.Close()
}

var (
	// ErrNoRowsUpdated is returned when a UPDATE query does not change any row which is unexpected
	ErrNoRowsUpdated = errors.New("no rows updated on UPDATE query")
	// ErrInvalidStateToSave is returned when a data is not in a state we can send it to the repo as
	ErrInvalidStateToSave = errors.New("data model in invalid state to be stored")
)

var (
	db                      *sql.DB
	dataAccessorInitializer sync.Once
	// ErrDBConnectionNeverInitialized is returned when GetNewDataAccessor is called the first time and it failed to connect to DB; in all subsequent calls the accessor will remain nil
	ErrDBConnectionNeverInitialized = errors.New("DB Connection never initialized")
	// RDBMSStorageInternalInjector injector for data storage related implementation
	RDBMSStorageInternalInjector = wire.NewSet(GetConnectionPool, GetDefaultCacheTTLDuration, NewIdempotencyRepository, NewRecoveryItemRepository, NewAttemptRepository, NewTenantSLARepository, NewCachedTenantSLARepository, wire.Struct(new(RelationalDBDataAccessor), "db", "idempotencyRepository", "recoveryItemRepository", "attemptRepository", "tenantSLARepository"), wire.Bind(new(DataAccessor), new(*RelationalDBDataAccessor)))
)

// GetDefaultCacheTTLDuration is the TTL used by cached repository wrappers
func GetDefaultCacheTTLDuration() time.Duration {
	return 4 * time.Hour
}

func panicIfNoDBConnectionPool(db *sql.DB) {
	if db == nil {
		panic(ErrDBConnectionNeverInitialized)
	}
}

// GetConnectionPool Gets the DB Connection Pool for the App
func GetConnectionPool(dbConfig config.RelationalDatabaseConfig, migrationConf *MigrationConfig) (*sql.DB, error) {
	return getConnectionPoolImpl(dbConfig, migrationConf)
}

var (
	getConnectionPoolImpl = func(dbConfig config.RelationalDatabaseConfig, migrationConf *MigrationConfig) (*sql.DB, error) {
		var err error = nil
		dataAccessorInitializer.Do(func() {
			db, err = createDBConnectionPool(dbConfig)
			if err == nil {
				err = runMigration(db, dbConfig, migrationConf)
			}
		})
		if db == nil && err == nil {
			err = ErrDBConnectionNeverInitialized
		}
		return db, err
	}

	createDBConnectionPool = func(dbConfig config.RelationalDatabaseConfig) (*sql.DB, error) {
		db, err := getDB(string(dbConfig.GetDBDialect()), dbConfig.GetDBConnectionURL())
		if err == nil {
			db.SetConnMaxLifetime(dbConfig.GetDBConnectionMaxLifetime())
			db.SetMaxIdleConns(int(dbConfig.GetMaxIdleDBConnections()))
			db.SetMaxOpenConns(int(dbConfig.GetMaxOpenDBConnections()))
			db.SetConnMaxIdleTime(dbConfig.GetDBConnectionMaxIdleTime())
		}
		return db, err
	}

	getDB = func(dialect, connectionURL string) (*sql.DB, error) {
		return sql.Open(string(dialect), connectionURL)
	}

	runMigration = func(db *sql.DB, dbConfig config.RelationalDatabaseConfig, migrationConf *MigrationConfig) error {
		if migrationConf.MigrationEnabled {
			dbDriver, err := getMigrationDriver(db, dbConfig)
			if err != nil {
				return err
			}
			dialect := string(dbConfig.GetDBDialect())
			sourceDriver, err := NewDialectSource(migrationConf.MigrationSource, dialect)
			if err != nil {
				return err
			}
			migration, err := getMigration(sourceDriver, dialect, dbDriver)
			if err != nil {
				return err
			}
			err = migration.Up()
			if err != nil && err != migrate.ErrNoChange {
				return err
			}
		}
		return nil
	}

	getMigration = func(sourceDriver *DialectSource, dialect string, dbDriver database.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithInstance("dialect", sourceDriver, dialect, dbDriver)
	}

	getMigrationDriver = func(db *sql.DB, dbConfig config.RelationalDatabaseConfig) (database.Driver, error) {
		switch dbConfig.GetDBDialect() {
		case config.MySQLDialect:
			return migrate_mysql.WithInstance(db, &migrate_mysql.Config{})
		default:
			return migrate_sqlite3.WithInstance(db, &migrate_sqlite3.Config{})
		}
	}

	rollback = func(tx *sql.Tx) {
		txErr := tx.Rollback()
		if txErr != nil {
			log.Error().Err(txErr).Msg("tx rollback error")
		}
	}

	transactionalOperations = func(db *sql.DB, txOps func(tx *sql.Tx) error) (err error) {
		var tx *sql.Tx
		tx, err = db.Begin()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Msg(fmt.Sprint("recovered from in-tx panic", r))
				rollback(tx)
			}
		}()
		if err == nil {
			err = txOps(tx)
			if err == nil {
				txErr := tx.Commit()
				if txErr != nil {
					log.Error().Err(txErr).Msg("tx commit error")
					err = txErr
				}
			} else {
				rollback(tx)
			}
		}
		return err
	}

	inTransactionExec = func(tx *sql.Tx, prequeryOps func(), query string, arguments func() []interface{}, expectedRowEffected int64) (err error) {
		prequeryOps()
		var result sql.Result
		result, err = tx.Exec(query, arguments()...)
		if err == nil {
			var rowsAffected int64
			if rowsAffected, err = result.RowsAffected(); expectedRowEffected > 0 && rowsAffected != expectedRowEffected && err == nil {
				err = ErrNoRowsUpdated
			}
		}
		return err
	}

	getTxWrapperForSingleWriteQuery = func(prequeryOps func(), query string, arguments func() []interface{}) func(tx *sql.Tx) error {
		return func(tx *sql.Tx) error {
			return inTransactionExec(tx, prequeryOps, query, arguments, int64(1))
		}
	}

	transactionalSingleRowWriteExec = func(db *sql.DB, prequeryOps func(), query string, arguments func() []interface{}) error {
		return transactionalWrites(db, getTxWrapperForSingleWriteQuery(prequeryOps, query, arguments))
	}

	transactionalWrites = func(db *sql.DB, ops ...func(tx *sql.Tx) error) error {
		return transactionalOperations(db, func(tx *sql.Tx) (err error) {
			for _, op := range ops {
				err = op(tx)
				if err != nil {
					break
				}
			}
			return err
		})
	}

	querySingleRow = func(db *sql.DB, query string, queryArgs func() []interface{}, scanArgs func() []interface{}) error {
		row := db.QueryRow(query, queryArgs()...)
		return row.Scan(scanArgs()...)
	}

	queryRows = func(db *sql.DB, query string, queryArgs func() []interface{}, scanArgs func() []interface{}) error {
		rows, err := db.Query(query, queryArgs()...)
		if err != nil {
			return err
		}
		defer func() { rows.Close() }()
		for rows.Next() {
			err = rows.Scan(scanArgs()...)
			if err != nil {
				return err
			}
		}
		return err
	}

	nilArgs             = func() []interface{} { return nil }
	emptyOps            = func() {}
	args2SliceFnWrapper = func(args ...interface{}) func() []interface{} {
		return func() []interface{} { return args }
	}
)

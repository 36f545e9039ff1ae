package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tusharfilia/ottoai-backend/config"
)

type RelationalDatabaseConfigMockImpl struct {
	mock.Mock
}

func (m *RelationalDatabaseConfigMockImpl) GetDBDialect() config.DBDialect {
	args := m.Called()
	return args.Get(0).(config.DBDialect)
}
func (m *RelationalDatabaseConfigMockImpl) GetDBConnectionURL() string {
	args := m.Called()
	return args.Get(0).(string)
}
func (m *RelationalDatabaseConfigMockImpl) GetDBConnectionMaxIdleTime() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}
func (m *RelationalDatabaseConfigMockImpl) GetDBConnectionMaxLifetime() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}
func (m *RelationalDatabaseConfigMockImpl) GetMaxIdleDBConnections() uint16 {
	args := m.Called()
	return args.Get(0).(uint16)
}
func (m *RelationalDatabaseConfigMockImpl) GetMaxOpenDBConnections() uint16 {
	args := m.Called()
	return args.Get(0).(uint16)
}

var (
	testDB               *sql.DB
	migrationLocation, _ = filepath.Abs("../migration/sqls/")
	defaultMigrationConf = &MigrationConfig{MigrationEnabled: true, MigrationSource: "file://" + migrationLocation}
)

func TestMain(m *testing.M) {
	// Setup DB and migration
	os.Remove("./ottoai.sqlite3")
	configuration, _ := config.GetAutoConfiguration()
	var dbErr error
	testDB, dbErr = GetConnectionPool(configuration, defaultMigrationConf)
	if dbErr == nil {
		m.Run()
	}
	testDB.Close()
}

func TestGetNewDataAccessor(t *testing.T) {
	configuration, _ := config.GetAutoConfiguration()
	t.Run("DBConnectionErr", func(t *testing.T) {
		dataAccessorInitializer = sync.Once{}
		oldGetDB := getDB
		defer func() {
			getDB = oldGetDB
			dataAccessorInitializer = sync.Once{}
			db = testDB
		}()
		db = nil
		dbConnectionErr := errors.New("DB Connection Error")
		getDB = func(dialect, connectionURL string) (*sql.DB, error) {
			return nil, dbConnectionErr
		}
		_, err := GetNewDataAccessor(configuration, configuration, defaultMigrationConf)
		assert.Equal(t, dbConnectionErr, err)
		t.Run("RetryingAfterConnectionErr", func(t *testing.T) {
			_, err := GetNewDataAccessor(configuration, configuration, defaultMigrationConf)
			assert.Equal(t, ErrDBConnectionNeverInitialized, err)
		})
	})
	t.Run("MigrationDriverErr", func(t *testing.T) {
		dataAccessorInitializer = sync.Once{}
		oldGetMigrationDriver := getMigrationDriver
		defer func() {
			getMigrationDriver = oldGetMigrationDriver
			dataAccessorInitializer = sync.Once{}
			db = testDB
		}()
		db = nil
		migrationErr := errors.New("Migration Driver Error")
		getMigrationDriver = func(db *sql.DB, dbConfig config.RelationalDatabaseConfig) (database.Driver, error) {
			return nil, migrationErr
		}
		_, err := GetNewDataAccessor(configuration, configuration, defaultMigrationConf)
		assert.Equal(t, migrationErr, err)
	})
	t.Run("MigrationRunErr", func(t *testing.T) {
		dataAccessorInitializer = sync.Once{}
		oldGetMigration := getMigration
		defer func() {
			getMigration = oldGetMigration
			dataAccessorInitializer = sync.Once{}
			db = testDB
		}()
		db = nil
		migrationErr := errors.New("Migration Error")
		getMigration = func(sourceDriver *DialectSource, dialect string, dbDriver database.Driver) (*migrate.Migrate, error) {
			return nil, migrationErr
		}
		_, err := GetNewDataAccessor(configuration, configuration, defaultMigrationConf)
		assert.Equal(t, migrationErr, err)
	})
	t.Run("Success", func(t *testing.T) {
		dataAccessorInitializer = sync.Once{}
		defer func() {
			dataAccessorInitializer = sync.Once{}
			db = testDB
		}()
		db = nil
		dataAccessor, err := GetNewDataAccessor(configuration, configuration, defaultMigrationConf)
		assert.Nil(t, err)
		assert.NotNil(t, dataAccessor.GetIdempotencyRepository())
		assert.NotNil(t, dataAccessor.GetRecoveryItemRepository())
		assert.NotNil(t, dataAccessor.GetAttemptRepository())
		assert.NotNil(t, dataAccessor.GetTenantSLARepository())
	})
}

func TestGetMigrationDriver(t *testing.T) {
	t.Run("MySQLDriver", func(t *testing.T) {
		mockDB, dbMock, _ := sqlmock.New()
		defer mockDB.Close()
		dbMock.ExpectQuery("SELECT DATABASE()").WillReturnRows(dbMock.NewRows([]string{"databaseName"}).FromCSVString("sample_database")).WillReturnError(nil)
		mockConfig := new(RelationalDatabaseConfigMockImpl)
		mockConfig.On("GetDBDialect").Return(config.MySQLDialect)
		_, err := getMigrationDriver(mockDB, mockConfig)
		mockConfig.AssertExpectations(t)
		// Err is expected since there is no way to mock db.conn.querycontext used by mysql driver
		assert.NotNil(t, err)
	})
	t.Run("SQLiteDriver", func(t *testing.T) {
		mockConfig := new(RelationalDatabaseConfigMockImpl)
		mockConfig.On("GetDBDialect").Return(config.SQLite3Dialect)
		_, err := getMigrationDriver(testDB, mockConfig)
		assert.Nil(t, err)
		mockConfig.AssertExpectations(t)
	})
}

func TestPanicIfNoDBConnectionPool(t *testing.T) {
	defer func() {
		r := recover()
		assert.Equal(t, ErrDBConnectionNeverInitialized, r)
	}()
	panicIfNoDBConnectionPool(nil)
}

func TestGetDefaultCacheTTLDuration(t *testing.T) {
	assert.Equal(t, 4*time.Hour, GetDefaultCacheTTLDuration())
}

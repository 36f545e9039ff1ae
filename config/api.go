package config

import (
	"net/url"
	"time"
)

// DBDialect allows us to define constants for supported database drivers
type DBDialect string

// LogLevel represents the log level logger should use
type LogLevel uint8

const (
	// SQLite3Dialect represents the DB Dialect for SQLite3
	SQLite3Dialect DBDialect = "sqlite3"
	// MySQLDialect represents the DB Dialect for MySQL
	MySQLDialect DBDialect = "mysql"
	// Debug is the lowest LogLevel, will output everything
	Debug LogLevel = iota + 1
	// Info is the second lowest LogLevel
	Info
	// Error only logs errors
	Error
	// Fatal only logs errors that halt the process
	Fatal
)

// RelationalDatabaseConfig represents DB configuration related behaviors
type RelationalDatabaseConfig interface {
	GetDBDialect() DBDialect
	GetDBConnectionURL() string
	GetDBConnectionMaxIdleTime() time.Duration
	GetDBConnectionMaxLifetime() time.Duration
	GetMaxIdleDBConnections() uint16
	GetMaxOpenDBConnections() uint16
}

// HTTPConfig represents the HTTP configuration related behaviors
type HTTPConfig interface {
	GetHTTPListeningAddr() string
	GetHTTPReadTimeout() time.Duration
	GetHTTPWriteTimeout() time.Duration
}

// LogConfig represents the interface for log related configuration
type LogConfig interface {
	GetLogLevel() LogLevel
	IsLoggerConfigAvailable() bool
	GetLogFilename() string
	GetMaxLogFileSize() uint
	GetMaxLogBackups() uint
	GetMaxAgeForALogFile() uint
	IsCompressionEnabledOnLogBackups() bool
}

// CoordinationConfig provides the interface for configuring the distributed lock store
type CoordinationConfig interface {
	// GetLockStoreURL returns the redis URL of the shared lock store; empty
	// string means the in-process lock manager is used instead
	GetLockStoreURL() string
	// GetLockTTL returns the lease duration granted on lock acquisition
	GetLockTTL() time.Duration
}

// RecoveryProcessorConfig provides the interface for configuring the recovery queue processor
type RecoveryProcessorConfig interface {
	GetDueSweepInterval() time.Duration
	GetDeadlineSweepInterval() time.Duration
	GetSweepBatchSize() int
	GetRetryBackoffDelays() []time.Duration
	GetBreakerFailureThreshold() uint
	GetBreakerRecoveryTimeout() time.Duration
}

// SLADefaultsConfig provides the fallback SLA policy for tenants without a stored one
type SLADefaultsConfig interface {
	GetDefaultResponseWindow() time.Duration
	GetDefaultEscalationWindow() time.Duration
	GetDefaultMaxRetries() uint
	GetDefaultBusinessHourStart() int
	GetDefaultBusinessHourEnd() int
	GetDefaultAIConfidenceThreshold() float64
}

// OutreachConfig provides the endpoints of the downstream outreach services
type OutreachConfig interface {
	// GetSMSGatewayURL returns the webhook URL messages are dispatched to; nil
	// means sends are logged instead of delivered
	GetSMSGatewayURL() *url.URL
	// GetAIDrafterURL returns the drafting service URL; nil means the built-in
	// template drafter is used
	GetAIDrafterURL() *url.URL
	// GetOutreachDispatchTimeout returns the HTTP timeout for outbound calls
	GetOutreachDispatchTimeout() time.Duration
}

// RemoteArchiveDestination represents the destination for archived recovery data.
type RemoteArchiveDestination string

const (
	// RemoteArchiveDestinationS3 represents AWS S3 as the archive destination.
	RemoteArchiveDestinationS3 RemoteArchiveDestination = "s3"
	// RemoteArchiveDestinationGCS represents Google Cloud Storage as the archive destination.
	RemoteArchiveDestinationGCS RemoteArchiveDestination = "gcs"
)

// RetentionConfig provides the interface for configuring the retention janitor.
type RetentionConfig interface {
	// IsRetentionEnabled returns true if the retention janitor should run.
	IsRetentionEnabled() bool
	// GetRetentionSweepInterval returns how often the janitor sweeps.
	GetRetentionSweepInterval() time.Duration
	// GetLedgerRetentionPeriod returns how long dedup ledger rows are kept after last being seen.
	GetLedgerRetentionPeriod() time.Duration
	// GetItemRetentionPeriod returns how long terminal recovery cases are kept before archival.
	GetItemRetentionPeriod() time.Duration
	// GetArchivePath returns the local filesystem path where cases are exported before being uploaded.
	GetArchivePath() string
	// GetArchiveNodeName returns a prefix to be added to the exported file name.
	GetArchiveNodeName() string
	// GetRemoteArchiveURL returns the root URL for the remote archive destination (e.g., S3 bucket URL or GCS bucket URL).
	GetRemoteArchiveURL() *url.URL
	// GetRemoteFilePrefix returns the prefix to be added to the exported file name when uploading to the remote destination.
	GetRemoteFilePrefix() string
	// GetMaxArchiveFileSizeInMB returns the maximum size of the exported file in MB before it is rotated to a new file
	GetMaxArchiveFileSizeInMB() uint
}

package config

import (
	"net/url"
	"os/user"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/rs/zerolog/log"
)

// AppVersion is the version string type
type AppVersion string

// GetVersion provides the current version of the project
func GetVersion() AppVersion {
	return "0.1-dev"
}

const (
	// ConfigFilename is the default config file name
	ConfigFilename = "ottoai.cfg"
	// DefaultSystemConfigFilePath is the default system location of the configuration
	DefaultSystemConfigFilePath = "/etc/ottoai/" + ConfigFilename
	// DefaultCurrentDirConfigFilePath is the config file path based on current working dir
	DefaultCurrentDirConfigFilePath = ConfigFilename
)

var (
	// EmptyConfigurationForError Represents the configuration instance to be
	// used when there is a configuration error during load
	EmptyConfigurationForError = &Config{}

	defaultLoadFunc = func(configFilePath string) (*ini.File, error) {
		if len(configFilePath) > 0 {
			return ini.LooseLoad([]byte(DefaultConfiguration), DefaultSystemConfigFilePath, getUserHomeDirBasedDefaultConfigFileLocation(), DefaultCurrentDirConfigFilePath, configFilePath)
		}
		return ini.LooseLoad([]byte(DefaultConfiguration), DefaultSystemConfigFilePath, getUserHomeDirBasedDefaultConfigFileLocation(), DefaultCurrentDirConfigFilePath)
	}
	loadConfiguration = defaultLoadFunc

	currentUser = user.Current
)

func getUserHomeDirBasedDefaultConfigFileLocation() string {
	user, err := currentUser()
	if err != nil {
		return DefaultCurrentDirConfigFilePath
	}
	return user.HomeDir + "/.ottoai/" + ConfigFilename
}

// Config represents the application configuration
type Config struct {
	dbDialect                    DBDialect
	dbConnectionURL              string
	dbConnectionMaxIdleTime      time.Duration
	dbConnectionMaxLifetime      time.Duration
	dbMaxIdleConnections         uint16
	dbMaxOpenConnections         uint16
	httpListeningAddr            string
	httpReadTimeout              time.Duration
	httpWriteTimeout             time.Duration
	logLevel                     LogLevel
	logFilename                  string
	maxFileSize                  uint
	maxBackups                   uint
	maxAge                       uint
	compressBackupsEnabled       bool
	lockStoreURL                 string
	lockTTL                      time.Duration
	dueSweepInterval             time.Duration
	deadlineSweepInterval        time.Duration
	sweepBatchSize               int
	retryBackoffDelays           []time.Duration
	breakerFailureThreshold      uint
	breakerRecoveryTimeout       time.Duration
	defaultResponseWindow        time.Duration
	defaultEscalationWindow      time.Duration
	defaultMaxRetries            uint
	defaultBusinessHourStart     int
	defaultBusinessHourEnd       int
	defaultAIConfidenceThreshold float64
	smsGatewayURL                *url.URL
	aiDrafterURL                 *url.URL
	outreachDispatchTimeout      time.Duration
	retentionEnabled             bool
	retentionSweepInterval       time.Duration
	ledgerRetentionPeriod        time.Duration
	itemRetentionPeriod          time.Duration
	archivePath                  string
	archiveNodeName              string
	remoteArchiveURL             *url.URL
	remoteFilePrefix             string
	maxArchiveFileSizeInMB       uint
}

// GetDBDialect returns the DB dialect of the configuration
func (config *Config) GetDBDialect() DBDialect {
	return config.dbDialect
}

// GetDBConnectionURL returns the DB Connection URL string
func (config *Config) GetDBConnectionURL() string {
	return config.dbConnectionURL
}

// GetDBConnectionMaxIdleTime returns the DB Connection max idle time
func (config *Config) GetDBConnectionMaxIdleTime() time.Duration {
	return config.dbConnectionMaxIdleTime
}

// GetDBConnectionMaxLifetime returns the DB Connection max lifetime
func (config *Config) GetDBConnectionMaxLifetime() time.Duration {
	return config.dbConnectionMaxLifetime
}

// GetMaxIdleDBConnections returns the maximum number of idle DB connections to retain in pool
func (config *Config) GetMaxIdleDBConnections() uint16 {
	return config.dbMaxIdleConnections
}

// GetMaxOpenDBConnections returns the maximum number of concurrent DB connections to keep open
func (config *Config) GetMaxOpenDBConnections() uint16 {
	return config.dbMaxOpenConnections
}

// GetHTTPListeningAddr retrieves the connection string to listen to
func (config *Config) GetHTTPListeningAddr() string {
	return config.httpListeningAddr
}

// GetHTTPReadTimeout retrieves the connection read timeout
func (config *Config) GetHTTPReadTimeout() time.Duration {
	return config.httpReadTimeout
}

// GetHTTPWriteTimeout retrieves the connection write timeout
func (config *Config) GetHTTPWriteTimeout() time.Duration {
	return config.httpWriteTimeout
}

// GetLogLevel retrieves the log level to emit logs at
func (config *Config) GetLogLevel() LogLevel {
	return config.logLevel
}

// IsLoggerConfigAvailable checks is logger configuration is set since its optional
func (config *Config) IsLoggerConfigAvailable() bool {
	return len(config.logFilename) > 0
}

// GetLogFilename retrieves the file name of the log
func (config *Config) GetLogFilename() string {
	return config.logFilename
}

// GetMaxLogFileSize retrieves the max log file size before its rotated in MB
func (config *Config) GetMaxLogFileSize() uint {
	return config.maxFileSize
}

// GetMaxLogBackups retrieves max rotated logs to retain
func (config *Config) GetMaxLogBackups() uint {
	return config.maxBackups
}

// GetMaxAgeForALogFile retrieves maximum day to retain a rotated log file
func (config *Config) GetMaxAgeForALogFile() uint {
	return config.maxAge
}

// IsCompressionEnabledOnLogBackups checks if log backups are compressed
func (config *Config) IsCompressionEnabledOnLogBackups() bool {
	return config.compressBackupsEnabled
}

// GetLockStoreURL returns the redis URL of the shared lock store; empty means in-process locks
func (config *Config) GetLockStoreURL() string {
	return config.lockStoreURL
}

// GetLockTTL returns the lease duration granted on lock acquisition
func (config *Config) GetLockTTL() time.Duration {
	return config.lockTTL
}

// GetDueSweepInterval retrieves the interval of the due-item sweep loop
func (config *Config) GetDueSweepInterval() time.Duration {
	return config.dueSweepInterval
}

// GetDeadlineSweepInterval retrieves the interval of the deadline sweep loop
func (config *Config) GetDeadlineSweepInterval() time.Duration {
	return config.deadlineSweepInterval
}

// GetSweepBatchSize retrieves how many items a single sweep tick loads at most
func (config *Config) GetSweepBatchSize() int {
	return config.sweepBatchSize
}

// GetRetryBackoffDelays retrieves the delays between retry attempts
func (config *Config) GetRetryBackoffDelays() []time.Duration {
	return config.retryBackoffDelays
}

// GetBreakerFailureThreshold retrieves the consecutive failure count that trips a circuit breaker
func (config *Config) GetBreakerFailureThreshold() uint {
	return config.breakerFailureThreshold
}

// GetBreakerRecoveryTimeout retrieves how long an open breaker waits before allowing a probe
func (config *Config) GetBreakerRecoveryTimeout() time.Duration {
	return config.breakerRecoveryTimeout
}

// GetDefaultResponseWindow retrieves the fallback SLA response window
func (config *Config) GetDefaultResponseWindow() time.Duration {
	return config.defaultResponseWindow
}

// GetDefaultEscalationWindow retrieves the fallback SLA escalation window
func (config *Config) GetDefaultEscalationWindow() time.Duration {
	return config.defaultEscalationWindow
}

// GetDefaultMaxRetries retrieves the fallback outreach retry budget
func (config *Config) GetDefaultMaxRetries() uint {
	return config.defaultMaxRetries
}

// GetDefaultBusinessHourStart retrieves the fallback outreach window start hour
func (config *Config) GetDefaultBusinessHourStart() int {
	return config.defaultBusinessHourStart
}

// GetDefaultBusinessHourEnd retrieves the fallback outreach window end hour
func (config *Config) GetDefaultBusinessHourEnd() int {
	return config.defaultBusinessHourEnd
}

// GetDefaultAIConfidenceThreshold retrieves the fallback confidence threshold for reply evaluation
func (config *Config) GetDefaultAIConfidenceThreshold() float64 {
	return config.defaultAIConfidenceThreshold
}

// GetSMSGatewayURL returns the webhook URL messages are dispatched to
func (config *Config) GetSMSGatewayURL() *url.URL {
	return config.smsGatewayURL
}

// GetAIDrafterURL returns the drafting service URL
func (config *Config) GetAIDrafterURL() *url.URL {
	return config.aiDrafterURL
}

// GetOutreachDispatchTimeout returns the HTTP timeout for outbound calls
func (config *Config) GetOutreachDispatchTimeout() time.Duration {
	return config.outreachDispatchTimeout
}

// IsRetentionEnabled returns true if the retention janitor should run
func (config *Config) IsRetentionEnabled() bool {
	return config.retentionEnabled
}

// GetRetentionSweepInterval returns how often the retention janitor sweeps
func (config *Config) GetRetentionSweepInterval() time.Duration {
	return config.retentionSweepInterval
}

// GetLedgerRetentionPeriod returns how long dedup ledger rows are kept after last being seen
func (config *Config) GetLedgerRetentionPeriod() time.Duration {
	return config.ledgerRetentionPeriod
}

// GetItemRetentionPeriod returns how long terminal recovery cases are kept before archival
func (config *Config) GetItemRetentionPeriod() time.Duration {
	return config.itemRetentionPeriod
}

// GetArchivePath returns the local filesystem path cases are exported to
func (config *Config) GetArchivePath() string {
	return config.archivePath
}

// GetArchiveNodeName returns a prefix to be added to the exported file name
func (config *Config) GetArchiveNodeName() string {
	return config.archiveNodeName
}

// GetRemoteArchiveURL returns the root URL for the remote archive destination
func (config *Config) GetRemoteArchiveURL() *url.URL {
	return config.remoteArchiveURL
}

// GetRemoteFilePrefix returns the prefix used when uploading to the remote destination
func (config *Config) GetRemoteFilePrefix() string {
	return config.remoteFilePrefix
}

// GetMaxArchiveFileSizeInMB returns the maximum exported file size before rotation
func (config *Config) GetMaxArchiveFileSizeInMB() uint {
	return config.maxArchiveFileSizeInMB
}

// GetAutoConfiguration gets configuration from default config and system defined path chain of
// /etc/ottoai/ottoai.cfg, {USER_HOME}/.ottoai/ottoai.cfg, ottoai.cfg (current dir)
func GetAutoConfiguration() (*Config, error) {
	return GetConfiguration("")
}

// GetConfigurationFromCLIConfig gets configuration based on CLI args
func GetConfigurationFromCLIConfig(cliConfig *CLIConfig) (*Config, error) {
	if len(cliConfig.ConfigPath) > 0 {
		return GetConfiguration(cliConfig.ConfigPath)
	}
	return GetAutoConfiguration()
}

// GetConfiguration gets the current state of application configuration
func GetConfiguration(configFilePath string) (*Config, error) {
	cfg, err := loadConfiguration(configFilePath)
	if err != nil {
		return EmptyConfigurationForError, err
	}
	return GetConfigurationFromParseConfig(cfg)
}

// GetConfigurationFromParseConfig returns configuration from parsed configuration
func GetConfigurationFromParseConfig(cfg *ini.File) (*Config, error) {
	configuration := &Config{}
	setupStorageConfiguration(cfg, configuration)
	setupHTTPConfiguration(cfg, configuration)
	setupLogConfiguration(cfg, configuration)
	setupCoordinationConfiguration(cfg, configuration)
	setupRecoveryConfiguration(cfg, configuration)
	setupSLADefaultsConfiguration(cfg, configuration)
	setupOutreachConfiguration(cfg, configuration)
	setupRetentionConfiguration(cfg, configuration)
	if validationErr := validateConfigurationState(configuration); validationErr != nil {
		return EmptyConfigurationForError, validationErr
	}
	return configuration, nil
}

func validateConfigurationState(configuration *Config) error {
	if len(configuration.httpListeningAddr) <= 0 {
		configuration.httpListeningAddr = ":8080"
	}
	if configuration.sweepBatchSize <= 0 {
		configuration.sweepBatchSize = 100
	}
	if len(configuration.retryBackoffDelays) == 0 {
		configuration.retryBackoffDelays = []time.Duration{time.Minute}
	}
	return nil
}

func setupStorageConfiguration(cfg *ini.File, configuration *Config) {
	dbSection, _ := cfg.GetSection("rdbms")
	dbDialect, _ := dbSection.GetKey("dialect")
	dbConnection, _ := dbSection.GetKey("connection-url")
	dbMaxIdleTimeInSec, _ := dbSection.GetKey("connxn-max-idle-time-seconds")
	dbMaxLifetimeInSec, _ := dbSection.GetKey("connxn-max-lifetime-seconds")
	dbMaxIdleConnections, _ := dbSection.GetKey("max-idle-connxns")
	dbMaxOpenConnections, _ := dbSection.GetKey("max-open-connxns")
	configuration.dbDialect = DBDialect(dbDialect.String())
	configuration.dbConnectionURL = dbConnection.String()
	configuration.dbConnectionMaxIdleTime = time.Duration(dbMaxIdleTimeInSec.MustUint(0)) * time.Second
	configuration.dbConnectionMaxLifetime = time.Duration(dbMaxLifetimeInSec.MustUint(0)) * time.Second
	configuration.dbMaxIdleConnections = uint16(dbMaxIdleConnections.MustUint(10))
	configuration.dbMaxOpenConnections = uint16(dbMaxOpenConnections.MustUint(50))
}

func setupHTTPConfiguration(cfg *ini.File, configuration *Config) {
	httpSection, _ := cfg.GetSection("http")
	httpListener, _ := httpSection.GetKey("listener")
	httpReadTimeout, _ := httpSection.GetKey("read-timeout")
	httpWriteTimeout, _ := httpSection.GetKey("write-timeout")
	configuration.httpListeningAddr = httpListener.String()
	configuration.httpReadTimeout = time.Duration(httpReadTimeout.MustUint(180)) * time.Second
	configuration.httpWriteTimeout = time.Duration(httpWriteTimeout.MustUint(180)) * time.Second
}

func setupLogConfiguration(cfg *ini.File, configuration *Config) {
	logSection, _ := cfg.GetSection("log")
	logLevelKey, _ := logSection.GetKey("log-level")
	logFilenameKey, _ := logSection.GetKey("filename")
	maxFileSizeKey, _ := logSection.GetKey("max-file-size-in-mb")
	maxBackupsKey, _ := logSection.GetKey("max-backups")
	maxAgeKey, _ := logSection.GetKey("max-age-in-days")
	compressEnabledKey, _ := logSection.GetKey("compress-backups")
	switch logLevelKey.MustString("debug") {
	case "fatal":
		configuration.logLevel = Fatal
	case "error":
		configuration.logLevel = Error
	case "info":
		configuration.logLevel = Info
	default:
		configuration.logLevel = Debug
	}
	configuration.logFilename = logFilenameKey.String()
	configuration.maxFileSize = maxFileSizeKey.MustUint(50)
	configuration.maxBackups = maxBackupsKey.MustUint(1)
	configuration.maxAge = maxAgeKey.MustUint(30)
	configuration.compressBackupsEnabled = compressEnabledKey.MustBool(false)
}

func setupCoordinationConfiguration(cfg *ini.File, configuration *Config) {
	coordinationSection, _ := cfg.GetSection("coordination")
	lockStoreURLKey, _ := coordinationSection.GetKey("lock-store-url")
	lockTTLKey, _ := coordinationSection.GetKey("lock-ttl-in-seconds")
	configuration.lockStoreURL = lockStoreURLKey.String()
	configuration.lockTTL = time.Duration(lockTTLKey.MustUint(30)) * time.Second
}

func setupRecoveryConfiguration(cfg *ini.File, configuration *Config) {
	recoverySection, _ := cfg.GetSection("recovery")
	dueSweepKey, _ := recoverySection.GetKey("due-sweep-interval-in-seconds")
	deadlineSweepKey, _ := recoverySection.GetKey("deadline-sweep-interval-in-seconds")
	batchSizeKey, _ := recoverySection.GetKey("sweep-batch-size")
	backoffDelaysKey, _ := recoverySection.GetKey("retry-backoff-delays-in-seconds")
	breakerThresholdKey, _ := recoverySection.GetKey("breaker-failure-threshold")
	breakerRecoveryKey, _ := recoverySection.GetKey("breaker-recovery-timeout-in-seconds")
	configuration.dueSweepInterval = time.Duration(dueSweepKey.MustUint(10)) * time.Second
	configuration.deadlineSweepInterval = time.Duration(deadlineSweepKey.MustUint(60)) * time.Second
	configuration.sweepBatchSize = batchSizeKey.MustInt(100)
	backoffDelayStrings := strings.Split(backoffDelaysKey.MustString("60"), ",")
	backoffDelays := make([]time.Duration, 0, len(backoffDelayStrings))
	for _, backoffDelayString := range backoffDelayStrings {
		parsed, err := time.ParseDuration(strings.TrimSpace(backoffDelayString) + "s")
		if err != nil {
			log.Error().Err(err).Str("delay", backoffDelayString).Msg("ignoring unparsable retry backoff delay")
			continue
		}
		backoffDelays = append(backoffDelays, parsed)
	}
	configuration.retryBackoffDelays = backoffDelays
	configuration.breakerFailureThreshold = breakerThresholdKey.MustUint(5)
	configuration.breakerRecoveryTimeout = time.Duration(breakerRecoveryKey.MustUint(30)) * time.Second
}

func setupSLADefaultsConfiguration(cfg *ini.File, configuration *Config) {
	slaSection, _ := cfg.GetSection("sla-defaults")
	responseWindowKey, _ := slaSection.GetKey("response-window-in-minutes")
	escalationWindowKey, _ := slaSection.GetKey("escalation-window-in-minutes")
	maxRetriesKey, _ := slaSection.GetKey("max-retries")
	businessHourStartKey, _ := slaSection.GetKey("business-hour-start")
	businessHourEndKey, _ := slaSection.GetKey("business-hour-end")
	confidenceThresholdKey, _ := slaSection.GetKey("ai-confidence-threshold")
	configuration.defaultResponseWindow = time.Duration(responseWindowKey.MustUint(30)) * time.Minute
	configuration.defaultEscalationWindow = time.Duration(escalationWindowKey.MustUint(240)) * time.Minute
	configuration.defaultMaxRetries = maxRetriesKey.MustUint(3)
	configuration.defaultBusinessHourStart = businessHourStartKey.MustInt(8)
	configuration.defaultBusinessHourEnd = businessHourEndKey.MustInt(20)
	configuration.defaultAIConfidenceThreshold = confidenceThresholdKey.MustFloat64(0.75)
}

func setupOutreachConfiguration(cfg *ini.File, configuration *Config) {
	outreachSection, _ := cfg.GetSection("outreach")
	smsGatewayURLKey, _ := outreachSection.GetKey("sms-gateway-url")
	aiDrafterURLKey, _ := outreachSection.GetKey("ai-drafter-url")
	dispatchTimeoutKey, _ := outreachSection.GetKey("dispatch-timeout-in-seconds")
	configuration.smsGatewayURL = parseOptionalURL(smsGatewayURLKey.String(), "sms-gateway-url")
	configuration.aiDrafterURL = parseOptionalURL(aiDrafterURLKey.String(), "ai-drafter-url")
	configuration.outreachDispatchTimeout = time.Duration(dispatchTimeoutKey.MustUint(30)) * time.Second
}

func parseOptionalURL(urlString, keyName string) *url.URL {
	if len(urlString) == 0 {
		return nil
	}
	parsed, err := url.Parse(urlString)
	if err != nil {
		log.Error().Err(err).Str("url", urlString).Str("key", keyName).Msg("ignoring unparsable url")
		return nil
	}
	return parsed
}

func setupRetentionConfiguration(cfg *ini.File, configuration *Config) {
	retentionSection, _ := cfg.GetSection("retention")
	enabledKey, _ := retentionSection.GetKey("enabled")
	sweepIntervalKey, _ := retentionSection.GetKey("sweep-interval-in-minutes")
	ledgerRetentionKey, _ := retentionSection.GetKey("ledger-retention-in-days")
	itemRetentionKey, _ := retentionSection.GetKey("item-retention-in-days")
	archivePathKey, _ := retentionSection.GetKey("archive-path")
	archiveNodeNameKey, _ := retentionSection.GetKey("archive-node-name")
	remoteArchiveURLKey, _ := retentionSection.GetKey("remote-archive-url")
	remoteFilePrefixKey, _ := retentionSection.GetKey("remote-file-prefix")
	maxArchiveFileSizeKey, _ := retentionSection.GetKey("max-archive-file-size-in-mb")
	configuration.retentionEnabled = enabledKey.MustBool(false)
	configuration.retentionSweepInterval = time.Duration(sweepIntervalKey.MustUint(60)) * time.Minute
	configuration.ledgerRetentionPeriod = time.Duration(ledgerRetentionKey.MustUint(7)) * 24 * time.Hour
	configuration.itemRetentionPeriod = time.Duration(itemRetentionKey.MustUint(30)) * 24 * time.Hour
	configuration.archivePath = archivePathKey.String()
	configuration.archiveNodeName = archiveNodeNameKey.MustString("node0")
	if remoteURLString := remoteArchiveURLKey.String(); len(remoteURLString) > 0 {
		remoteURL, err := url.Parse(remoteURLString)
		if err != nil {
			log.Error().Err(err).Str("url", remoteURLString).Msg("ignoring unparsable remote archive url")
		} else {
			configuration.remoteArchiveURL = remoteURL
		}
	}
	configuration.remoteFilePrefix = remoteFilePrefixKey.String()
	configuration.maxArchiveFileSizeInMB = maxArchiveFileSizeKey.MustUint(100)
}

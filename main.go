package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/tusharfilia/ottoai-backend/config"
	"github.com/tusharfilia/ottoai-backend/recovery"
	"github.com/tusharfilia/ottoai-backend/retention"
	"github.com/tusharfilia/ottoai-backend/storage"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "OttoAI Backend"

var (
	exit = func(code int) {
		os.Exit(code)
	}
	consolePrintln = func(output string) {
		fmt.Println(output)
	}
	// ErrMigrationSrcNotDir is returned when migration source path is not a directory
	ErrMigrationSrcNotDir = errors.New("migration source must be a directory")
)

// ServerLifecycleListenerImpl is the main's listener to the HTTP server lifecycle
type ServerLifecycleListenerImpl struct {
	shutdownListener    chan bool
	startFailedListener chan error
}

// StartingServer logs that the listener is about to start
func (impl *ServerLifecycleListenerImpl) StartingServer() {}

// ServerStartFailed hands the server error to the main loop
func (impl *ServerLifecycleListenerImpl) ServerStartFailed(err error) {
	impl.startFailedListener <- err
}

// ServerShutdownCompleted signals the main loop that graceful shutdown finished
func (impl *ServerLifecycleListenerImpl) ServerShutdownCompleted() {
	impl.shutdownListener <- true
}

// NewServerListener creates the server lifecycle listener
func NewServerListener() *ServerLifecycleListenerImpl {
	return &ServerLifecycleListenerImpl{shutdownListener: make(chan bool, 1), startFailedListener: make(chan error, 1)}
}

// HTTPServiceContainer wraps the running pieces of the service
type HTTPServiceContainer struct {
	Configuration *config.Config
	Server        *http.Server
	DataAccessor  storage.DataAccessor
	Listener      *ServerLifecycleListenerImpl
	Processor     *recovery.ProcessorImpl
	Janitor       *retention.Janitor
}

// GetMigrationConfig creates the storage migration configuration from CLI args
func GetMigrationConfig(cliConfig *config.CLIConfig) *storage.MigrationConfig {
	return &storage.MigrationConfig{MigrationEnabled: cliConfig.IsMigrationEnabled(), MigrationSource: cliConfig.MigrationSource}
}

// GetIdempotencyRepo provides the dedup ledger repository off the data accessor
func GetIdempotencyRepo(dataAccessor storage.DataAccessor) storage.IdempotencyRepository {
	return dataAccessor.GetIdempotencyRepository()
}

// GetRecoveryItemRepo provides the recovery case repository off the data accessor
func GetRecoveryItemRepo(dataAccessor storage.DataAccessor) storage.RecoveryItemRepository {
	return dataAccessor.GetRecoveryItemRepository()
}

// GetAttemptRepo provides the attempt repository off the data accessor
func GetAttemptRepo(dataAccessor storage.DataAccessor) storage.AttemptRepository {
	return dataAccessor.GetAttemptRepository()
}

// GetTenantSLARepo provides the tenant policy repository off the data accessor
func GetTenantSLARepo(dataAccessor storage.DataAccessor) storage.TenantSLARepository {
	return dataAccessor.GetTenantSLARepository()
}

func parseArgs(programName string, args []string) (cliConfig *config.CLIConfig, output string, err error) {
	flags := flag.NewFlagSet(programName, flag.ContinueOnError)
	var buf bytes.Buffer
	flags.SetOutput(&buf)

	cliConfig = &config.CLIConfig{}
	flags.StringVar(&cliConfig.ConfigPath, "config", "", "Config file location override")
	flags.StringVar(&cliConfig.MigrationSource, "migrate", "", "Migration source directory")
	flags.BoolVar(&cliConfig.StopOnConfigChange, "stop-on-conf-change", false, "Stop the process when the config file changes; a supervisor is expected to restart it")
	flags.BoolVar(&cliConfig.DoNotWatchConfigChange, "do-not-watch-conf-change", false, "Do not watch the config file for changes")

	err = flags.Parse(args)
	if err != nil {
		return nil, buf.String(), err
	}
	if len(cliConfig.MigrationSource) > 0 {
		fileInfo, statErr := os.Stat(cliConfig.MigrationSource)
		if statErr != nil {
			return nil, buf.String(), statErr
		}
		if !fileInfo.IsDir() {
			return nil, buf.String(), ErrMigrationSrcNotDir
		}
		absPath, _ := filepath.Abs(cliConfig.MigrationSource)
		cliConfig.MigrationSource = "file://" + absPath
	}
	return cliConfig, buf.String(), nil
}

func setupLogger(logConfig config.LogConfig) {
	switch logConfig.GetLogLevel() {
	case config.Fatal:
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case config.Error:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case config.Info:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if logConfig.IsLoggerConfigAvailable() {
		logWriter := &lumberjack.Logger{
			Filename:   logConfig.GetLogFilename(),
			MaxSize:    int(logConfig.GetMaxLogFileSize()),
			MaxBackups: int(logConfig.GetMaxLogBackups()),
			MaxAge:     int(logConfig.GetMaxAgeForALogFile()),
			Compress:   logConfig.IsCompressionEnabledOnLogBackups(),
		}
		log.SetOutput(logWriter)
		zlog.Logger = zlog.Output(logWriter)
	}
}

func main() {
	cliConfig, output, cliCfgErr := parseArgs(os.Args[0], os.Args[1:])
	if cliCfgErr != nil {
		consolePrintln(output)
		exit(1)
	}
	log.Println(serviceName + " - " + string(GetAppVersion()))
	httpServiceContainer, err := GetHTTPServiceContainer(cliConfig)
	if err != nil {
		log.Println(err)
		exit(2)
	}
	setupLogger(httpServiceContainer.Configuration)
	httpServiceContainer.Processor.Start()
	httpServiceContainer.Janitor.Start()
	cliConfig.NotifyOnConfigFileChange(func() {
		log.Println("Config file changed")
		if cliConfig.StopOnConfigChange {
			serverShutdownContext, shutdownTimeoutCancelFunc := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownTimeoutCancelFunc()
			httpServiceContainer.Server.Shutdown(serverShutdownContext)
		}
	})
	exitCode := 0
	select {
	case <-httpServiceContainer.Listener.shutdownListener:
	case serverErr := <-httpServiceContainer.Listener.startFailedListener:
		// a direct Shutdown surfaces here as ErrServerClosed and is a clean stop
		if serverErr != nil && serverErr != http.ErrServerClosed {
			log.Println(serverErr)
			exitCode = 3
		}
	}
	httpServiceContainer.Processor.Stop()
	httpServiceContainer.Janitor.Stop()
	cliConfig.StopWatcher()
	log.Println("exiting")
	if exitCode != 0 {
		exit(exitCode)
	}
}

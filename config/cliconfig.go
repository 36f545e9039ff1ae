package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

var (
	errNoFileToWatch       = errors.New("no file to watch")
	errTruncatedConfigFile = errors.New("truncated config file")
)

// CLIConfig represents the Command Line Args config
type CLIConfig struct {
	ConfigPath             string
	MigrationSource        string
	StopOnConfigChange     bool
	DoNotWatchConfigChange bool
	callbacks              []func()
	watcherStarted         bool
	watcherStarterMutex    sync.Mutex
	watcher                *fsnotify.Watcher
}

// IsMigrationEnabled returns whether migration is enabled
func (conf *CLIConfig) IsMigrationEnabled() bool {
	return len(conf.MigrationSource) > 0
}

// NotifyOnConfigFileChange registers callback to be invoked whenever the
// content of the config file changes; the watcher is started lazily on the
// first registration
func (conf *CLIConfig) NotifyOnConfigFileChange(callback func()) {
	if conf.DoNotWatchConfigChange {
		return
	}
	conf.callbacks = append(conf.callbacks, callback)
	if !conf.watcherStarted {
		conf.startConfigWatcher()
	}
}

// IsConfigWatcherStarted returns whether config watcher is running
func (conf *CLIConfig) IsConfigWatcherStarted() bool {
	return conf.watcherStarted
}

func (conf *CLIConfig) startConfigWatcher() {
	conf.watcherStarterMutex.Lock()
	defer conf.watcherStarterMutex.Unlock()
	conf.watchConfigFile()
	conf.watcherStarted = true
}

// StopWatcher stops any watcher if started for CLI ConfigPath file change
func (conf *CLIConfig) StopWatcher() {
	if conf.watcherStarted {
		log.Print("closing watcher")
		conf.watcher.Close()
	}
}

// watchedConfigFile carries the watch loop's view of the config file; the
// content hash is what decides whether callbacks fire, since editors and
// atomic saves generate spurious write events.
type watchedConfigFile struct {
	filename    string
	cleanPath   string
	symlinkedTo string
	contentHash string
	callbacks   []func()
}

func (conf *CLIConfig) watchConfigFile() {
	watcher, err := openWatcher()
	if err != nil {
		log.Error().Err(err).Msg("could not setup watcher")
		return
	}
	conf.watcher = watcher
	filename, err := resolveWatchTarget(conf.ConfigPath)
	if err != nil {
		log.Error().Err(err).Msg("could not get file to watch")
		return
	}
	cleanPath := filepath.Clean(filename)
	symlinkedTo, _ := filepath.EvalSymlinks(filename)
	contentHash, err := hashConfigFile(symlinkedTo)
	if err != nil {
		log.Error().Err(err).Msg("could not generate original config file hash")
		return
	}
	watched := &watchedConfigFile{
		filename:    filename,
		cleanPath:   cleanPath,
		symlinkedTo: symlinkedTo,
		contentHash: contentHash,
		callbacks:   conf.callbacks,
	}
	// Watch the directory, not the file, so renames and atomic saves are
	// picked up across platforms
	configDir, _ := filepath.Split(cleanPath)
	watcher.Add(configDir)
	go runWatchLoop(watcher, watched)
}

func runWatchLoop(watcher *fsnotify.Watcher, watched *watchedConfigFile) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if ok {
				if removed := handleWatchEvent(&event, watched); removed {
					return
				}
			}
		case err, ok := <-watcher.Errors:
			if ok {
				log.Warn().Err(err).Msg("watcher error")
			}
			return
		}
	}
}

var (
	handleWatchEvent = func(event *fsnotify.Event, watched *watchedConfigFile) bool {
		eventPath := filepath.Clean(event.Name)
		log.Debug().Uint32("op", uint32(event.Op)).Str("eventName", event.Name).Msg("File change event")
		if eventPath == watched.cleanPath && event.Op&fsnotify.Remove != 0 {
			return true
		}
		currentTarget, _ := filepath.EvalSymlinks(watched.filename)
		retargeted := currentTarget != "" && currentTarget != watched.symlinkedTo
		written := eventPath == watched.cleanPath && event.Op&(fsnotify.Write|fsnotify.Create) != 0
		if written || retargeted {
			watched.symlinkedTo = currentTarget
			watched.contentHash = fireOnContentChange(watched.symlinkedTo, watched.contentHash, watched.callbacks)
		}
		return false
	}

	fireOnContentChange = func(configFile, knownHash string, callbacks []func()) string {
		currentHash, err := hashConfigFile(configFile)
		if err != nil {
			if err == errTruncatedConfigFile {
				log.Warn().Err(err).Msg("truncation of config file not expected")
			} else {
				log.Error().Err(err).Msg("could not generate file hash on change")
			}
			return knownHash
		}
		log.Debug().Str("knownHash", knownHash).Str("currentHash", currentHash).Msg("config content hashes")
		if currentHash != knownHash {
			for _, callback := range callbacks {
				go callback()
			}
		}
		return currentHash
	}

	openWatcher = func() (*fsnotify.Watcher, error) {
		return fsnotify.NewWatcher()
	}

	resolveWatchTarget = func(configPath string) (filename string, err error) {
		filename = configPath
		fileInfo, err := os.Stat(filename)
		if err != nil || !fileInfo.Mode().IsRegular() {
			filename = ConfigFilename
			fileInfo, err = os.Stat(filename)
			if err != nil || !fileInfo.Mode().IsRegular() {
				log.Warn().Err(errNoFileToWatch).Msg("could not find any file to watch")
				return "", errNoFileToWatch
			}
		}
		return filename, nil
	}

	hashConfigFile = func(filePath string) (hashHex string, err error) {
		file, err := os.Open(filePath)
		if err != nil {
			return "", err
		}
		defer file.Close()
		hasher := sha256.New()
		byteCount, err := io.Copy(hasher, file)
		if err != nil {
			return "", err
		}
		if byteCount == 0 {
			return "", errTruncatedConfigFile
		}
		return hex.EncodeToString(hasher.Sum(nil)), nil
	}
)

package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultLogFile    = "./logs/greenledger.log"
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 14
)

// Config controls the rotating log file. Zero values fall back to defaults.
type Config struct {
	Filename   string `ini:"filename"`
	MaxSizeMB  int    `ini:"max_size_mb"`
	MaxAgeDays int    `ini:"max_age_days"`
	MaxBackups int    `ini:"max_backups"`
	Compress   bool   `ini:"compress"`
	Debug      bool   `ini:"debug"`
}

var (
	mu           sync.RWMutex
	logger       = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	rotator      *lumberjack.Logger
	debugEnabled = os.Getenv("LOG_DEBUG") != ""
)

// Init switches output to a lumberjack rotating file. LOGFILE,
// LOGFILE_MAX_SIZE_MB and LOGFILE_MAX_AGE_DAYS override the config.
func Init(cfg Config) {
	lj := &lumberjack.Logger{
		Filename:   getLogFilename(cfg.Filename),
		MaxSize:    getMaxSize(cfg.MaxSizeMB),
		MaxAge:     getMaxAge(cfg.MaxAgeDays),
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}

	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		_ = rotator.Close()
	}
	rotator = lj
	logger = log.New(lj, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	debugEnabled = debugEnabled || cfg.Debug
}

// SetOutput redirects log output, mainly for tests and CLI commands.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

// Close flushes and closes the rotating file if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return err
}

func getLogFilename(configured string) string {
	if logFile := os.Getenv("LOGFILE"); logFile != "" {
		return "./logs/" + logFile
	}
	if configured != "" {
		return configured
	}
	return defaultLogFile
}

func getMaxSize(configured int) int {
	if v, ok := envInt("LOGFILE_MAX_SIZE_MB"); ok {
		return v
	}
	if configured > 0 {
		return configured
	}
	return defaultMaxSizeMB
}

func getMaxAge(configured int) int {
	if v, ok := envInt("LOGFILE_MAX_AGE_DAYS"); ok {
		return v
	}
	if configured > 0 {
		return configured
	}
	return defaultMaxAgeDays
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func output(color, level, category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	output(ColorGreen, "INFO", category, content...)
}

func Error(category string, content ...interface{}) {
	output(ColorRed, "ERROR", category, content...)
}

func Warn(category string, content ...interface{}) {
	output(ColorYellow, "WARN", category, content...)
}

func Debug(category string, content ...interface{}) {
	mu.RLock()
	enabled := debugEnabled
	mu.RUnlock()
	if !enabled {
		return
	}
	output(ColorBlue, "DEBUG", category, content...)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}

package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type level int

const (
	debugLevel level = iota
	infoLevel
	warnLevel
	errorLevel
	exceptionLevel
)

const (
	defaultLogFilePath   = "./logs/bragboard.log"
	defaultMaxSizeBytes  = 20 * 1024 * 1024
	envLogFilePath       = "LOG_FILE_PATH"
	envLogMaxSizeMB      = "LOG_MAX_SIZE_MB"
	envLogFormat         = "LOG_FORMAT"
	envLogLevel          = "LOG_LEVEL"
	logFormatText        = "text"
	logFormatJSON        = "json"
	terminalColorReset   = "\033[0m"
	terminalColorGray    = "\033[90m"
	terminalColorGreen   = "\033[32m"
	terminalColorYellow  = "\033[33m"
	terminalColorRed     = "\033[31m"
	terminalColorMagenta = "\033[35m"
)

func (lv level) String() string {
	switch lv {
	case debugLevel:
		return "DEBUG"
	case infoLevel:
		return "INFO"
	case warnLevel:
		return "WARN"
	case errorLevel:
		return "ERROR"
	case exceptionLevel:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}

func parseLevel(raw string) level {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return debugLevel
	case "WARN", "WARNING":
		return warnLevel
	case "ERROR":
		return errorLevel
	case "EXCEPTION":
		return exceptionLevel
	default:
		return infoLevel
	}
}

// Options overrides the environment-derived logger settings.
// An empty FilePath disables the file sink.
type Options struct {
	FilePath     string
	MaxSizeBytes int64
	Format       string
	Level        string
	Console      io.Writer
	Color        bool
}

type logger struct {
	mu           sync.Mutex
	filePath     string
	maxSizeBytes int64
	format       string
	minLevel     level
	console      io.Writer
	color        bool
	file         *os.File
}

var (
	globalMu sync.RWMutex
	global   = newLoggerFromEnv()
)

func newLoggerFromEnv() *logger {
	path := strings.TrimSpace(os.Getenv(envLogFilePath))
	if path == "" {
		path = defaultLogFilePath
	}
	if strings.EqualFold(path, "off") {
		path = ""
	}

	maxSizeBytes := int64(defaultMaxSizeBytes)
	if raw := strings.TrimSpace(os.Getenv(envLogMaxSizeMB)); raw != "" {
		if sizeMB, err := strconv.Atoi(raw); err == nil && sizeMB > 0 {
			maxSizeBytes = int64(sizeMB) * 1024 * 1024
		}
	}

	return &logger{
		filePath:     path,
		maxSizeBytes: maxSizeBytes,
		format:       normalizeFormat(os.Getenv(envLogFormat)),
		minLevel:     parseLevel(os.Getenv(envLogLevel)),
		console:      os.Stdout,
		color:        true,
	}
}

func normalizeFormat(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == logFormatJSON {
		return logFormatJSON
	}
	return logFormatText
}

// Configure replaces the process logger. The previous file sink is closed.
func Configure(opts Options) {
	maxSize := opts.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = defaultMaxSizeBytes
	}
	console := opts.Console
	if console == nil {
		console = io.Discard
	}
	next := &logger{
		filePath:     strings.TrimSpace(opts.FilePath),
		maxSizeBytes: maxSize,
		format:       normalizeFormat(opts.Format),
		minLevel:     parseLevel(opts.Level),
		console:      console,
		color:        opts.Color,
	}

	globalMu.Lock()
	prev := global
	global = next
	globalMu.Unlock()
	prev.close()
}

// ConfigureFromEnv rebuilds the process logger from LOG_* variables, for
// callers that load a .env file after package initialisation.
func ConfigureFromEnv() {
	next := newLoggerFromEnv()
	globalMu.Lock()
	prev := global
	global = next
	globalMu.Unlock()
	prev.close()
}

func current() *logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func Debugf(format string, args ...any) {
	current().logf(debugLevel, format, args...)
}

func Infof(format string, args ...any) {
	current().logf(infoLevel, format, args...)
}

func Warnf(format string, args ...any) {
	current().logf(warnLevel, format, args...)
}

func Errorf(format string, args ...any) {
	current().logf(errorLevel, format, args...)
}

func Exceptionf(format string, args ...any) {
	current().logf(exceptionLevel, format, args...)
}

func (l *logger) logf(lv level, format string, args ...any) {
	if lv < l.minLevel {
		return
	}
	ts := time.Now().Format(time.RFC3339Nano)
	caller := callerFuncName(3)
	message := fmt.Sprintf(format, args...)
	line := l.formatLine(ts, lv, caller, message)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		fmt.Fprintln(l.console, colorForLevel(lv)+line+terminalColorReset)
	} else {
		fmt.Fprintln(l.console, line)
	}
	if l.filePath != "" {
		l.writeToFile(line + "\n")
	}
}

func (l *logger) formatLine(ts string, lv level, caller, message string) string {
	if l.format == logFormatJSON {
		payload := map[string]string{
			"timestamp": ts,
			"level":     lv.String(),
			"caller":    caller,
			"message":   message,
		}
		if b, err := json.Marshal(payload); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%s:%s:%s:%s", ts, lv, caller, message)
}

// writeToFile expects l.mu to be held.
func (l *logger) writeToFile(line string) {
	if err := l.ensureOpen(); err != nil {
		fmt.Fprintf(os.Stderr, "logger open file error: %v\n", err)
		return
	}
	if err := l.rotateIfNeeded(int64(len(line))); err != nil {
		fmt.Fprintf(os.Stderr, "logger rotate error: %v\n", err)
		return
	}
	if _, err := l.file.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "logger write error: %v\n", err)
		return
	}
	_ = l.file.Sync()
}

func (l *logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

func (l *logger) ensureOpen() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.filePath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

func (l *logger) rotateIfNeeded(incomingSize int64) error {
	if l.file == nil {
		return nil
	}
	stat, err := l.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size()+incomingSize <= l.maxSizeBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}
	l.file = nil

	rotatedPath, err := nextRotatedPath(l.filePath)
	if err != nil {
		return err
	}
	if err := os.Rename(l.filePath, rotatedPath); err != nil {
		return err
	}

	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

func nextRotatedPath(currentPath string) (string, error) {
	dir := filepath.Dir(currentPath)
	ext := filepath.Ext(currentPath)
	base := strings.TrimSuffix(filepath.Base(currentPath), ext)
	ts := time.Now().Format("20060102_150405")

	for index := 1; ; index++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", base, ts, index, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
}

func callerFuncName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	parts := strings.Split(fn.Name(), "/")
	return parts[len(parts)-1]
}

func colorForLevel(lv level) string {
	switch lv {
	case debugLevel:
		return terminalColorGray
	case infoLevel:
		return terminalColorGreen
	case warnLevel:
		return terminalColorYellow
	case errorLevel:
		return terminalColorRed
	case exceptionLevel:
		return terminalColorMagenta
	default:
		return terminalColorReset
	}
}

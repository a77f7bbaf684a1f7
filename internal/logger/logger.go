// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls where log output lands.
type Config struct {
	Directory string // daily log files are created here
}

var (
	initialized int32
	std         *log.Logger
	mu          sync.Mutex
)

// Setup initializes the logger with file and console output. Before Setup
// (or if it is never called, e.g. in tests) messages fall back to the
// standard log package.
func Setup(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if atomic.LoadInt32(&initialized) == 1 {
		return fmt.Errorf("logger already initialized")
	}

	if err := os.MkdirAll(cfg.Directory, 0o775); err != nil {
		return fmt.Errorf("create logs directory %q: %w", cfg.Directory, err)
	}

	name := fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02"))
	path := filepath.Join(cfg.Directory, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return fmt.Errorf("open log file %q: %w", path, err)
	}

	std = log.New(io.MultiWriter(os.Stdout, file), "", log.Ldate|log.Ltime)
	atomic.StoreInt32(&initialized, 1)
	LogInfo("Logger initialized, writing to %s", path)
	return nil
}

func logMessage(level, message string, v ...interface{}) {
	if atomic.LoadInt32(&initialized) == 0 {
		log.Printf("[%s] %s", level, fmt.Sprintf(message, v...))
		return
	}

	_, file, line, _ := runtime.Caller(2)
	std.Printf("[%s] %s:%d - %s", level, filepath.Base(file), line, fmt.Sprintf(message, v...))
}

func LogInfo(message string, v ...interface{})  { logMessage("INFO", message, v...) }
func LogWarn(message string, v ...interface{})  { logMessage("WARN", message, v...) }
func LogError(message string, v ...interface{}) { logMessage("ERROR", message, v...) }

func LogFatal(message string, v ...interface{}) {
	logMessage("FATAL", message, v...)
	os.Exit(1)
}

// LogHTTPRequest logs an inbound request with the client address.
func LogHTTPRequest(r *http.Request) {
	LogInfo("HTTP %s %s from %s", r.Method, r.URL.Path, GetClientIP(r))
}

// GetClientIP resolves the client address, honoring proxy headers.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// internal/cleanup/cleanup.go
//
// cleanup prunes old daily log files so a long-running station doesn't fill
// its disk. It runs once at startup and then daily at a quiet hour.
package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"flavorchart/internal/logger"
)

const (
	cleanupHour      = 2  // 2 AM local
	retentionDays    = 30 // keep a month of logs
	maxRemovedPerRun = 50
)

// StartLogRetention starts the daily log pruning job for dir.
func StartLogRetention(dir string) {
	go func() {
		logger.LogInfo("Log retention started for %s - pruning daily at %d:00, keeping %d days", dir, cleanupHour, retentionDays)

		runLogRetention(dir)

		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), cleanupHour, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}
			time.Sleep(next.Sub(now))

			runLogRetention(dir)
		}
	}()
}

func runLogRetention(dir string) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.LogError("Log retention could not read %s: %v", dir, err)
		return
	}

	removed := 0
	for _, entry := range entries {
		if removed >= maxRemovedPerRun {
			logger.LogWarn("Log retention hit the per-run limit of %d, resuming tomorrow", maxRemovedPerRun)
			break
		}
		if entry.IsDir() || !isLogFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.LogError("Log retention could not remove %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.LogInfo("Log retention removed %d log file(s) older than %d days", removed, retentionDays)
	}
}

func isLogFile(name string) bool {
	return strings.HasPrefix(name, "server_") && strings.HasSuffix(name, ".log")
}

// Package ledger persists records of successfully uploaded files so later
// runs can skip unchanged content. Each transfer root gets its own
// line-oriented log file under a per-user state directory.
package ledger

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"dirpush/internal/candidate"
	"dirpush/internal/fingerprint"
)

const (
	filePrefix = "transfers-"
	fileSuffix = ".log"
)

// Entry is one durable record: a local path was uploaded with a given
// content fingerprint at a given time.
type Entry struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store owns the upload log for exactly one (client, root) pair.
// A disabled store turns every operation into a no-op, so callers never
// branch on whether persistence is configured.
type Store struct {
	logPath string
	enabled bool
	logger  *zap.Logger

	// Serializes append and rewrite so concurrent completions cannot
	// interleave partial lines.
	mu sync.Mutex
}

// New creates a store for root, logging to stateDir.
func New(stateDir, root string, logger *zap.Logger) *Store {
	return &Store{
		logPath: filepath.Join(stateDir, LogName(root)),
		enabled: true,
		logger:  logger,
	}
}

// Disabled returns a store whose operations all no-op.
func Disabled(logger *zap.Logger) *Store {
	return &Store{enabled: false, logger: logger}
}

// LogName derives the deterministic log filename for a transfer root:
// a fixed prefix plus the first 16 hex characters of the BLAKE3 hash of
// the cleaned absolute root path. Distinct roots get distinct names.
func LogName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	sum := blake3.Sum256([]byte(abs))
	return filePrefix + hex.EncodeToString(sum[:8]) + fileSuffix
}

// DefaultStateDir returns the per-user state directory for upload logs.
func DefaultStateDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(base, "dirpush"), nil
}

// Enabled reports whether the store persists anything.
func (s *Store) Enabled() bool {
	return s.enabled
}

// LogPath returns the path of the backing log file, "" when disabled.
func (s *Store) LogPath() string {
	return s.logPath
}

// Load reads every valid entry from the log, keyed by resolved path.
// A missing log or a disabled store yields an empty map. Malformed lines
// are skipped with a warning; they never fail the load.
func (s *Store) Load() map[string]Entry {
	entries := make(map[string]Entry)
	if !s.enabled {
		return entries
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.logPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cannot read upload log, deduplication disabled for this run",
				zap.String("log", s.logPath), zap.Error(err))
		}
		return entries
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil || e.Path == "" {
			s.logger.Warn("skipping malformed upload log line",
				zap.String("log", s.logPath), zap.ByteString("line", line))
			continue
		}
		// Later records replace earlier ones for the same path.
		entries[e.Path] = e
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("upload log read aborted", zap.String("log", s.logPath), zap.Error(err))
	}

	return entries
}

// Save appends one entry for the candidate, fingerprinting its current
// content. Persistence failures are warned and swallowed: the worst case
// is a redundant re-upload on the next run.
func (s *Store) Save(f candidate.File) {
	if !s.enabled {
		return
	}

	fp, err := fingerprint.File(f.LocalPath)
	if err != nil {
		s.logger.Warn("cannot fingerprint uploaded file, not recording it",
			zap.String("path", f.LocalPath), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.logPath), 0o755); err != nil {
		s.logger.Warn("cannot create state dir", zap.String("log", s.logPath), zap.Error(err))
		return
	}

	line, err := json.Marshal(Entry{Path: f.LocalPath, Fingerprint: fp, UploadedAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("cannot encode upload record", zap.String("path", f.LocalPath), zap.Error(err))
		return
	}

	out, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("cannot open upload log for append",
			zap.String("log", s.logPath), zap.Error(err))
		return
	}
	defer out.Close()

	if _, err := out.Write(append(line, '\n')); err != nil {
		s.logger.Warn("cannot append upload record",
			zap.String("log", s.logPath), zap.Error(err))
	}
}

// Remove deletes the entry for path by rewriting the log without it.
// No-op if the log or the entry does not exist.
func (s *Store) Remove(path string) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	excluded := map[string]struct{}{path: {}}
	if err := rewriteExcluding(s.logPath, excluded, nil, s.logger); err != nil {
		s.logger.Warn("cannot rewrite upload log",
			zap.String("log", s.logPath), zap.String("path", path), zap.Error(err))
	}
}

// rewriteExcluding reads every entry of logPath and writes back the ones
// whose path is not in excludedPaths and whose fingerprint is not in
// excludedFingerprints (either set may be nil). Unparsable lines are
// dropped with a warning. A missing log is a no-op.
func rewriteExcluding(logPath string, excludedPaths, excludedFingerprints map[string]struct{}, logger *zap.Logger) error {
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", logPath, err)
	}

	var kept [][]byte
	changed := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			changed = true
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil || e.Path == "" {
			logger.Warn("dropping malformed upload log line during rewrite",
				zap.String("log", logPath), zap.ByteString("line", line))
			changed = true
			continue
		}
		if _, drop := excludedPaths[e.Path]; drop {
			changed = true
			continue
		}
		if _, drop := excludedFingerprints[e.Fingerprint]; drop {
			changed = true
			continue
		}
		kept = append(kept, append([]byte(nil), line...))
	}
	scanErr := scanner.Err()
	f.Close()
	if scanErr != nil {
		return fmt.Errorf("read %s: %w", logPath, scanErr)
	}
	if !changed {
		return nil
	}

	tmp := logPath + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(out)
	for _, line := range kept {
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	return os.Rename(tmp, logPath)
}

package ledger

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// PurgeFingerprint removes every record carrying the given fingerprint
// from every upload log under stateDir, across all transfer roots the
// current user has ever recorded. Other records, and other logs' unrelated
// records, are left untouched.
//
// Used when the remote side signals that content identified by a
// fingerprint is no longer valid and must be re-uploaded everywhere it
// was cached.
func PurgeFingerprint(stateDir, fp string, logger *zap.Logger) error {
	if fp == "" {
		return fmt.Errorf("fingerprint must not be empty")
	}

	logs, err := filepath.Glob(filepath.Join(stateDir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return fmt.Errorf("scan state dir %s: %w", stateDir, err)
	}

	excluded := map[string]struct{}{fp: {}}
	for _, logPath := range logs {
		if err := rewriteExcluding(logPath, nil, excluded, logger); err != nil {
			return fmt.Errorf("purge %s: %w", logPath, err)
		}
		logger.Debug("purged upload log", zap.String("log", logPath), zap.String("fingerprint", fp))
	}

	return nil
}

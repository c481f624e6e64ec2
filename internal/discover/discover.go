// Package discover walks a transfer root and classifies each regular file
// as pending (needs upload) or skipped (invalid, or already uploaded and
// unchanged according to the upload ledger).
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"dirpush/internal/candidate"
	"dirpush/internal/fingerprint"
	"dirpush/internal/ledger"
	"dirpush/internal/validate"
)

// ReasonAlreadyUploaded marks skips caused by an up-to-date ledger entry.
const ReasonAlreadyUploaded = "already uploaded, unchanged"

// Skip records a file that will not enter the transfer queue.
type Skip struct {
	Path    string
	Reasons []string
}

// Discoverer performs one-shot discovery runs against a root directory.
type Discoverer struct {
	validator validate.Validator
	store     *ledger.Store
	maxAge    time.Duration
	logger    *zap.Logger

	startedAt  time.Time
	finishedAt time.Time
}

// New builds a Discoverer. maxAge bounds how long a ledger entry stays
// resumable; zero disables expiry.
func New(v validate.Validator, store *ledger.Store, maxAge time.Duration, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		validator: v,
		store:     store,
		maxAge:    maxAge,
		logger:    logger,
	}
}

// Discover walks root and returns the pending candidates and skip records.
// A missing root or a non-directory root is fatal; per-file problems only
// produce skips. Discovery may remove stale or mismatched ledger entries,
// but never writes new ones.
func (d *Discoverer) Discover(root string) ([]candidate.File, []Skip, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("transfer root %s not found", root)
		}
		return nil, nil, fmt.Errorf("stat transfer root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("transfer root %s is not a directory", root)
	}

	d.startedAt = time.Now()
	uploaded := d.store.Load()

	var pending []candidate.File
	var skips []Skip

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		c, err := candidate.Build(root, path)
		if err != nil {
			skips = append(skips, Skip{Path: path, Reasons: []string{err.Error()}})
			return nil
		}

		if reasons := d.validator.Validate(c); len(reasons) > 0 {
			skips = append(skips, Skip{Path: c.LocalPath, Reasons: reasons})
			return nil
		}

		rec, ok := uploaded[c.LocalPath]
		if !ok {
			pending = append(pending, c)
			return nil
		}

		if d.maxAge > 0 && time.Since(rec.UploadedAt) > d.maxAge {
			d.logger.Debug("upload record expired, re-uploading",
				zap.String("path", c.LocalPath),
				zap.Time("uploaded_at", rec.UploadedAt))
			d.store.Remove(c.LocalPath)
			pending = append(pending, c)
			return nil
		}

		fp, err := fingerprint.File(c.LocalPath)
		if err != nil {
			d.logger.Warn("cannot fingerprint file, treating it as changed",
				zap.String("path", c.LocalPath), zap.Error(err))
			d.store.Remove(c.LocalPath)
			pending = append(pending, c)
			return nil
		}

		if fp == rec.Fingerprint {
			skips = append(skips, Skip{Path: c.LocalPath, Reasons: []string{ReasonAlreadyUploaded}})
			return nil
		}

		// Content changed since the last successful upload.
		d.store.Remove(c.LocalPath)
		pending = append(pending, c)
		return nil
	})

	d.finishedAt = time.Now()
	if err != nil {
		return nil, nil, fmt.Errorf("walk transfer root %s: %w", root, err)
	}

	d.logger.Info("discovery finished",
		zap.String("root", root),
		zap.Int("pending", len(pending)),
		zap.Int("skipped", len(skips)),
		zap.Duration("took", d.finishedAt.Sub(d.startedAt)))

	return pending, skips, nil
}

// Window returns the start and end timestamps of the last discovery run.
func (d *Discoverer) Window() (start, end time.Time) {
	return d.startedAt, d.finishedAt
}

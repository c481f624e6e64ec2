// Package transport defines the narrow contract through which candidate
// files reach the remote storage service, and the S3-compatible
// implementation of it.
package transport

import (
	"context"
	"time"

	"dirpush/internal/candidate"
	"dirpush/internal/outcome"
)

// Receipt confirms one uploaded file.
type Receipt struct {
	// ID uniquely identifies this transfer.
	ID string
	// RemotePath is the key the content was stored under.
	RemotePath string
	// UploadedAt is when the remote service accepted the content.
	UploadedAt time.Time
}

// Transport moves a candidate's bytes to the remote service. Failures of
// any kind (authentication, network, remote service, file-specific) are
// carried uniformly in the outcome's error; callers only ever use the
// message.
type Transport interface {
	Upload(ctx context.Context, f candidate.File) outcome.Outcome[Receipt]
}

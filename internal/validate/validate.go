package validate

import (
	"fmt"
	"os"

	"dirpush/internal/candidate"
)

// Validator decides whether a candidate file may enter a transfer.
// An empty reason list means the file is acceptable.
type Validator interface {
	Validate(f candidate.File) []string
}

// Chain runs every validator in order and collects all reasons.
type Chain []Validator

func (c Chain) Validate(f candidate.File) []string {
	var reasons []string
	for _, v := range c {
		reasons = append(reasons, v.Validate(f)...)
	}
	return reasons
}

// Readable rejects files the current process cannot open for reading.
type Readable struct{}

func (Readable) Validate(f candidate.File) []string {
	file, err := os.Open(f.LocalPath)
	if err != nil {
		return []string{fmt.Sprintf("file is not readable: %v", err)}
	}
	file.Close()
	return nil
}

// MaxSize rejects files larger than Limit bytes. A zero limit accepts
// every size.
type MaxSize struct {
	Limit int64
}

func (v MaxSize) Validate(f candidate.File) []string {
	if v.Limit > 0 && f.Size > v.Limit {
		return []string{fmt.Sprintf("file size %d exceeds limit %d", f.Size, v.Limit)}
	}
	return nil
}

// MediaTypes rejects files whose declared media type is not in the
// allow-list. An empty list accepts every type.
type MediaTypes struct {
	Allowed []string
}

func (v MediaTypes) Validate(f candidate.File) []string {
	if len(v.Allowed) == 0 {
		return nil
	}
	for _, mt := range v.Allowed {
		if mt == f.MediaType {
			return nil
		}
	}
	return []string{fmt.Sprintf("media type %s is not allowed", f.MediaType)}
}

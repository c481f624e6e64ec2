package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
remote:
  endpoint: storage.example.com:9000
  access_key: ak
  secret_key: sk
  bucket: backups
  prefix: laptop
  secure: true
transfer:
  root: /data/photos
  concurrency: 4
  max_entry_age_days: 7
log_level: debug
`
	be.Err(t, os.WriteFile(path, []byte(yaml), 0o644), nil)

	cfg, err := Load(path, nil)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Remote.Bucket, "backups")
	be.Equal(t, cfg.Transfer.Root, "/data/photos")
	be.Equal(t, cfg.Transfer.Concurrency, 4)
	be.Equal(t, cfg.Transfer.MaxEntryAgeDays, 7)
	be.Equal(t, cfg.LogLevel, "debug")
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
remote:
  endpoint: storage.example.com:9000
  access_key: ak
  secret_key: sk
  bucket: backups
transfer:
  root: /data/photos
`
	be.Err(t, os.WriteFile(path, []byte(yaml), 0o644), nil)

	cfg, err := Load(path, nil)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Transfer.Concurrency, 8)
	be.Equal(t, cfg.Transfer.MaxEntryAgeDays, 30)
	be.Equal(t, cfg.LogLevel, "info")
}

func TestLoadRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing_bucket",
			yaml: `
remote:
  endpoint: storage.example.com:9000
  access_key: ak
  secret_key: sk
transfer:
  root: /data
`,
		},
		{
			name: "missing_root",
			yaml: `
remote:
  endpoint: storage.example.com:9000
  access_key: ak
  secret_key: sk
  bucket: b
`,
		},
		{
			name: "bad_log_level",
			yaml: `
remote:
  endpoint: storage.example.com:9000
  access_key: ak
  secret_key: sk
  bucket: b
transfer:
  root: /data
log_level: loud
`,
		},
		{
			name: "zero_concurrency",
			yaml: `
remote:
  endpoint: storage.example.com:9000
  access_key: ak
  secret_key: sk
  bucket: b
transfer:
  root: /data
  concurrency: -1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			be.Err(t, os.WriteFile(path, []byte(tt.yaml), 0o644), nil)

			_, err := Load(path, nil)
			be.Err(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	be.Err(t, err)
}

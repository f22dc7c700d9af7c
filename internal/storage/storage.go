package storage

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/outage-bot/internal/domain"
)

// Package storage persists dedup markers for announced feed entries.

// Store records which (service, identifier) pairs have already been announced.
type Store interface {
	Close() error
	HasAnnounced(service, id string) (bool, error)
	MarkAnnounced(service, id string, entry domain.FeedEntry) error
}

// Options carries backend specific locations.
type Options struct {
	CacheDir   string
	BBoltPath  string
	SQLitePath string
}

const (
	TypeFile   = "file"
	TypeBBolt  = "bbolt"
	TypeSQLite = "sqlite"
)

// NewStore creates the configured storage backend.
func NewStore(typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", TypeFile:
		if strings.TrimSpace(opts.CacheDir) == "" {
			return nil, fmt.Errorf("file storage requires a cache directory")
		}
		return openFile(opts.CacheDir)
	case "none", "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BBoltPath)
	case TypeSQLite:
		if strings.TrimSpace(opts.SQLitePath) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// MarkerKey is the flat marker name: lower-cased service name, a dash, then
// the identifier. The file and sqlite backends key on it directly.
func MarkerKey(service, id string) string {
	return serviceKey(service) + "-" + id
}

func serviceKey(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

type noopStore struct{}

func (noopStore) Close() error                                         { return nil }
func (noopStore) HasAnnounced(string, string) (bool, error)            { return false, nil }
func (noopStore) MarkAnnounced(string, string, domain.FeedEntry) error { return nil }

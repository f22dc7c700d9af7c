package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Markers live in one nested bucket per service under the root bucket,
// keyed by entry identifier.
var rootBucket = []byte("markers")

var errNoRoot = errors.New("marker root bucket missing")

type boltRecord struct {
	MarkedAt time.Time        `json:"marked_at"`
	Entry    domain.FeedEntry `json:"entry"`
}

type boltStore struct {
	db  *bolt.DB
	now func() time.Time
}

func openBolt(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bbolt directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create marker bucket: %w", err)
	}
	return &boltStore{db: db, now: time.Now}, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) HasAnnounced(service, id string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		if root == nil {
			return errNoRoot
		}
		svc := root.Bucket([]byte(serviceKey(service)))
		found = svc != nil && svc.Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

func (b *boltStore) MarkAnnounced(service, id string, entry domain.FeedEntry) error {
	payload, err := json.Marshal(boltRecord{MarkedAt: b.now().UTC(), Entry: entry})
	if err != nil {
		return fmt.Errorf("encode marker %s: %w", MarkerKey(service, id), err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		if root == nil {
			return errNoRoot
		}
		svc, err := root.CreateBucketIfNotExists([]byte(serviceKey(service)))
		if err != nil {
			return fmt.Errorf("service bucket %q: %w", serviceKey(service), err)
		}
		return svc.Put([]byte(id), payload)
	})
}

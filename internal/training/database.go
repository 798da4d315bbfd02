package training

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const sampleBucket = "samples"

// DB is the append-only sample archive. There is deliberately no update or
// delete: archived samples are immutable training data.
type DB interface {
	// SaveSample appends a sample. Saving an existing ID is an error.
	SaveSample(sample *Sample) error

	// GetSample retrieves a sample by ID.
	GetSample(id string) (*Sample, error)

	// ListSamples returns all archived samples.
	ListSamples() ([]*Sample, error)

	// Close closes the database.
	Close() error
}

// BoltDB implements DB using BoltDB.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the sample archive at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sampleBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveSample appends a sample, enforcing write-once semantics.
func (b *BoltDB) SaveSample(sample *Sample) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sampleBucket))
		if bucket.Get([]byte(sample.ID)) != nil {
			return fmt.Errorf("sample already archived: %s", sample.ID)
		}
		data, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("marshaling sample: %w", err)
		}
		return bucket.Put([]byte(sample.ID), data)
	})
}

// GetSample retrieves a sample by ID.
func (b *BoltDB) GetSample(id string) (*Sample, error) {
	var sample *Sample
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(sampleBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("sample not found: %s", id)
		}
		return json.Unmarshal(data, &sample)
	})
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// ListSamples returns all archived samples.
func (b *BoltDB) ListSamples() ([]*Sample, error) {
	samples := make([]*Sample, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sampleBucket)).ForEach(func(k, v []byte) error {
			var sample Sample
			if err := json.Unmarshal(v, &sample); err != nil {
				return fmt.Errorf("unmarshaling sample: %w", err)
			}
			samples = append(samples, &sample)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

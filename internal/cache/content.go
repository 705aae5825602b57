package cache

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"github.com/dgraph-io/badger/v4"
)

var ErrMiss = errors.New("content not cached")

// ContentCache holds extracted readable article bodies in Badger. Redis
// keeps the lightweight interaction records; the heavy HTML lands here,
// gzip-compressed, keyed by sha256 of the article URL.
type ContentCache struct {
	db *badger.DB
}

// Open opens (or creates) the cache at path. Pass inMemory=true in tests
// so nothing touches disk.
func Open(path string, inMemory bool) (*ContentCache, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &ContentCache{db: db}, nil
}

func (c *ContentCache) Close() error {
	return c.db.Close()
}

// Key returns the cache key for a URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Put stores the readable content for a URL, compressed.
func (c *ContentCache) Put(url, content string) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.WriteString(zw, content); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Key(url)), buf.Bytes())
	})
}

// Get returns the readable content for a URL, or ErrMiss.
func (c *ContentCache) Get(url string) (string, error) {
	var compressed []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key(url)))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return "", ErrMiss
	} else if err != nil {
		return "", err
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	content, err := io.ReadAll(zr)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

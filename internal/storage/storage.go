package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketCredentials = "credentials"

	// TokenKey is the fixed key the bearer credential is stored under.
	TokenKey = "portscanner_token"
)

// Storage is the durable client-side store. It only holds the API credential.
type Storage struct {
	db *bbolt.DB
}

func NewStorage(dbPath string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists([]byte(bucketCredentials))
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Token returns the stored credential; ok is false when none is stored.
func (s *Storage) Token() (token string, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketCredentials))
		if b == nil {
			return errors.New("bucket not found")
		}
		v := b.Get([]byte(TokenKey))
		if len(v) == 0 {
			return nil
		}
		token = string(v)
		ok = true
		return nil
	})
	return token, ok, err
}

func (s *Storage) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketCredentials))
		if b == nil {
			return errors.New("bucket not found")
		}
		return b.Put([]byte(TokenKey), []byte(token))
	})
}

func (s *Storage) ClearToken() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketCredentials))
		if b == nil {
			return errors.New("bucket not found")
		}
		return b.Delete([]byte(TokenKey))
	})
}

// Package blobstore stores opaque objects (the doctor directory, uploaded lab
// files) behind a small key/value interface. The S3 implementation talks to
// any S3-compatible endpoint; InMemory backs tests and local development.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrBlobNotFound  = errors.New("blob not found")
	ErrNotConfigured = errors.New("blob storage is not configured")
	ErrEmptyKey      = errors.New("blob key is required")
)

// Object describes a stored blob.
type Object struct {
	Key          string    `json:"key"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the contract shared by all blob backends.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error)
	Get(ctx context.Context, key string) ([]byte, *Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*Object, error)
}

type storedBlob struct {
	object Object
	data   []byte
}

// InMemory is a thread-safe Store for tests and development.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string]*storedBlob)}
}

func (s *InMemory) Put(_ context.Context, key string, data []byte, contentType string) (*Object, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	sum := sha256.Sum256(data)
	obj := Object{
		Key:          key,
		ContentType:  contentType,
		Size:         int64(len(data)),
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: time.Now().UTC(),
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.blobs[key] = &storedBlob{object: obj, data: buf}
	s.mu.Unlock()

	out := obj
	return &out, nil
}

func (s *InMemory) Get(_ context.Context, key string) ([]byte, *Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	data := make([]byte, len(b.data))
	copy(data, b.data)
	obj := b.object
	return data, &obj, nil
}

func (s *InMemory) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *InMemory) List(_ context.Context, prefix string) ([]*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Object
	for key, b := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			obj := b.object
			out = append(out, &obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

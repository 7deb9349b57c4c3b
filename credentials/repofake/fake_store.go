package fakestore

import (
	"sync"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/pkg/errors"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is a memory-backed credentials.Store for tests.
type FakeStore struct {
	values map[string]string
	failOn map[string]error // key -> error returned by Set
	lock   sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values: make(map[string]string),
		failOn: make(map[string]error),
	}
}

func (fs *FakeStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err, ok := fs.failOn[key]; ok {
		return err
	}
	fs.values[key] = value
	return nil
}

func (fs *FakeStore) Get(key string) (string, bool, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	v, ok := fs.values[key]
	return v, ok, nil
}

func (fs *FakeStore) Clear(keys ...string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if len(keys) == 0 {
		fs.values = make(map[string]string)
		return nil
	}
	for _, k := range keys {
		delete(fs.values, k)
	}
	return nil
}

// FailSet makes every Set on key return an error until Reset.
func (fs *FakeStore) FailSet(key string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failOn[key] = errors.Errorf("fake store: set %s failed", key)
}

// Reset drops injected failures.
func (fs *FakeStore) Reset() {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failOn = make(map[string]error)
}

// Len is the number of stored keys.
func (fs *FakeStore) Len() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return len(fs.values)
}

// Snapshot copies the stored values.
func (fs *FakeStore) Snapshot() map[string]string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	out := make(map[string]string, len(fs.values))
	for k, v := range fs.values {
		out[k] = v
	}
	return out
}

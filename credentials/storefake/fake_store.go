package storefake

import (
	"errors"
	"sync"

	"github.com/jrsteele09/callscreen-client/credentials"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store that counts writes.
type FakeStore struct {
	cred       credentials.Credential
	ok         bool
	setCalls   int
	clearCalls int
	failWrites bool
	lock       sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// NewFakeStoreWith returns a store already holding cred.
func NewFakeStoreWith(cred credentials.Credential) *FakeStore {
	return &FakeStore{cred: cred, ok: true}
}

func (s *FakeStore) Get() (credentials.Credential, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cred, s.ok
}

func (s *FakeStore) Set(cred credentials.Credential) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setCalls++
	s.cred = cred
	s.ok = !cred.IsZero()
	if s.failWrites {
		return errors.New("write failed")
	}
	return nil
}

func (s *FakeStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clearCalls++
	s.cred = credentials.Credential{}
	s.ok = false
	if s.failWrites {
		return errors.New("write failed")
	}
	return nil
}

// FailWrites makes Set and Clear return an error after updating memory, like a
// durable store whose disk write failed.
func (s *FakeStore) FailWrites(fail bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failWrites = fail
}

func (s *FakeStore) SetCalls() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.setCalls
}

func (s *FakeStore) ClearCalls() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.clearCalls
}

package credentials

import (
	"encoding/json"
	"sync"
	"time"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Manager groups the raw Store keys into records. Record and handshake
// writes and clears happen under one lock, so readers going through the
// Manager never observe a partially written group.
type Manager struct {
	store Store
	mu    sync.RWMutex
}

func NewManager(store Store) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	return &Manager{store: store}, nil
}

// SaveRecord writes token, refresh token and user as one group.
func (m *Manager) SaveRecord(r Record) error {
	if r.Token == "" || r.User == nil {
		return errors.Wrap(sessionerrors.ErrStorage, "[Manager.SaveRecord] token and user are required")
	}
	userJSON, err := json.Marshal(r.User)
	if err != nil {
		return errors.Wrap(err, "[Manager.SaveRecord] marshal user")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeGroup(recordKeys, map[string]string{
		KeyToken:        r.Token,
		KeyRefreshToken: r.RefreshToken,
		KeyUser:         string(userJSON),
	})
}

// LoadRecord reads the persisted record. Missing keys yield an incomplete record.
func (m *Manager) LoadRecord() (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var r Record
	var err error
	if r.Token, _, err = m.store.Get(KeyToken); err != nil {
		return Record{}, storageErr(err, "get token")
	}
	if r.RefreshToken, _, err = m.store.Get(KeyRefreshToken); err != nil {
		return Record{}, storageErr(err, "get refresh token")
	}
	userJSON, ok, err := m.store.Get(KeyUser)
	if err != nil {
		return Record{}, storageErr(err, "get user")
	}
	if ok && userJSON != "" {
		var u session.AuthUser
		if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
			return Record{}, storageErr(err, "decode user")
		}
		r.User = &u
	}
	return r, nil
}

func (m *Manager) ClearRecord() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Clear(recordKeys...); err != nil {
		return storageErr(err, "clear record")
	}
	return nil
}

// SaveHandshake replaces any pending OAuth handshake.
func (m *Manager) SaveHandshake(h Handshake) error {
	if h.Nonce == "" || h.Provider == "" {
		return errors.Wrap(sessionerrors.ErrStorage, "[Manager.SaveHandshake] nonce and provider are required")
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeGroup(handshakeKeys, map[string]string{
		KeyOAuthNonce:     h.Nonce,
		KeyOAuthProvider:  h.Provider,
		KeyOAuthCreatedAt: h.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// ConsumeHandshake reads and deletes the pending handshake. The delete is
// attempted even when the read fails, so a handshake is never usable twice.
func (m *Manager) ConsumeHandshake() (Handshake, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var h Handshake
	nonce, nonceOK, nonceErr := m.store.Get(KeyOAuthNonce)
	provider, providerOK, providerErr := m.store.Get(KeyOAuthProvider)
	createdAt, createdOK, _ := m.store.Get(KeyOAuthCreatedAt)

	if err := m.store.Clear(handshakeKeys...); err != nil {
		return Handshake{}, false, storageErr(err, "clear handshake")
	}
	if nonceErr != nil {
		return Handshake{}, false, storageErr(nonceErr, "get nonce")
	}
	if providerErr != nil {
		return Handshake{}, false, storageErr(providerErr, "get provider")
	}

	h.Nonce = nonce
	h.Provider = provider
	if createdOK {
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			h.CreatedAt = t
		}
	}
	return h, nonceOK && providerOK && nonce != "" && provider != "", nil
}

func (m *Manager) SelectedProject() (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok, err := m.store.Get(KeySelectedProject)
	if err != nil {
		return "", false, storageErr(err, "get selected project")
	}
	return id, ok && id != "", nil
}

func (m *Manager) SetSelectedProject(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		return m.clear(KeySelectedProject)
	}
	if err := m.store.Set(KeySelectedProject, id); err != nil {
		return storageErr(err, "set selected project")
	}
	return nil
}

func (m *Manager) ClearSelectedProject() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clear(KeySelectedProject)
}

// ClearAll removes every key the store owns.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Clear(); err != nil {
		return storageErr(err, "clear all")
	}
	return nil
}

func (m *Manager) clear(keys ...string) error {
	if err := m.store.Clear(keys...); err != nil {
		return storageErr(err, "clear")
	}
	return nil
}

// writeGroup must be called with mu held. Without batch support a failed
// write clears the whole group again.
func (m *Manager) writeGroup(keys []string, values map[string]string) error {
	if bs, ok := m.store.(BatchStore); ok {
		if err := bs.SetMany(values); err != nil {
			return storageErr(err, "batch write")
		}
		return nil
	}
	for _, k := range keys {
		if err := m.store.Set(k, values[k]); err != nil {
			if clearErr := m.store.Clear(keys...); clearErr != nil {
				log.Err(clearErr).Msg("Failed to roll back partial credential write")
			}
			return storageErr(err, "write "+k)
		}
	}
	return nil
}

func storageErr(err error, op string) error {
	return errors.Wrapf(sessionerrors.New(sessionerrors.ErrStorage, sessionerrors.MsgStorage, err), "[credentials] %s", op)
}

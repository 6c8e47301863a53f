package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys under which the credentials are persisted.
const (
	KeyToken      = "token"
	KeyUser       = "user"
	KeyAdminToken = "admin_token"
)

var (
	// ErrBackendUnavailable wraps every storage failure reported by a Backend.
	ErrBackendUnavailable = errors.New("credential backend unavailable")
	// ErrIncompletePrimary is returned when a primary credential lacks its token or user.
	ErrIncompletePrimary = errors.New("primary credential requires token and user")
	// ErrEmptyAdminToken is returned when an admin credential has no token.
	ErrEmptyAdminToken = errors.New("admin credential requires token")
	// ErrUnknownSlot is returned for slots other than SlotPrimary and SlotAdmin.
	ErrUnknownSlot = errors.New("unknown credential slot")
)

// Slot identifies one of the two credential slots.
type Slot uint8

const (
	// SlotPrimary holds the everyday login token and user record.
	SlotPrimary Slot = iota + 1
	// SlotAdmin holds the short-lived elevated admin token.
	SlotAdmin
)

func (s Slot) String() string {
	switch s {
	case SlotPrimary:
		return "primary"
	case SlotAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Credential is the value stored in a slot. User is only set for SlotPrimary.
type Credential struct {
	Token string
	User  *User
}

// Backend is raw string key-value storage for one profile.
//
// Get reports ok=false for a missing key; only storage failures are errors.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store applies the slot rules on top of a Backend.
//
// Writes to the primary slot are not atomic across its two keys; a read that finds only one
// of them reports the slot as absent.
type Store struct {
	backend Backend
}

// NewStore returns a Store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Get returns the credential held in slot. ok is false when the slot is empty or only
// partially written.
func (s *Store) Get(ctx context.Context, slot Slot) (Credential, bool, error) {
	switch slot {
	case SlotPrimary:
		return s.getPrimary(ctx)
	case SlotAdmin:
		token, ok, err := s.backend.Get(ctx, KeyAdminToken)
		if err != nil {
			return Credential{}, false, wrapBackend(err)
		}
		if !ok || token == "" {
			return Credential{}, false, nil
		}
		return Credential{Token: token}, true, nil
	default:
		return Credential{}, false, ErrUnknownSlot
	}
}

func (s *Store) getPrimary(ctx context.Context) (Credential, bool, error) {
	token, ok, err := s.backend.Get(ctx, KeyToken)
	if err != nil {
		return Credential{}, false, wrapBackend(err)
	}
	if !ok || token == "" {
		return Credential{}, false, nil
	}

	raw, ok, err := s.backend.Get(ctx, KeyUser)
	if err != nil {
		return Credential{}, false, wrapBackend(err)
	}
	if !ok || raw == "" {
		return Credential{}, false, nil
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return Credential{}, false, nil
	}

	return Credential{Token: token, User: &user}, true, nil
}

// Set writes cred into slot, replacing what was there.
func (s *Store) Set(ctx context.Context, slot Slot, cred Credential) error {
	switch slot {
	case SlotPrimary:
		if cred.Token == "" || cred.User == nil {
			return ErrIncompletePrimary
		}
		data, err := json.Marshal(cred.User)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		if err := s.backend.Set(ctx, KeyUser, string(data)); err != nil {
			return wrapBackend(err)
		}
		if err := s.backend.Set(ctx, KeyToken, cred.Token); err != nil {
			return wrapBackend(err)
		}
		return nil
	case SlotAdmin:
		if cred.Token == "" {
			return ErrEmptyAdminToken
		}
		if err := s.backend.Set(ctx, KeyAdminToken, cred.Token); err != nil {
			return wrapBackend(err)
		}
		return nil
	default:
		return ErrUnknownSlot
	}
}

// Clear empties slot. Clearing an empty slot is not an error.
func (s *Store) Clear(ctx context.Context, slot Slot) error {
	var keys []string
	switch slot {
	case SlotPrimary:
		keys = []string{KeyToken, KeyUser}
	case SlotAdmin:
		keys = []string{KeyAdminToken}
	default:
		return ErrUnknownSlot
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		return wrapBackend(err)
	}
	return nil
}

// ClearAll empties both slots.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyAdminToken, KeyToken, KeyUser); err != nil {
		return wrapBackend(err)
	}
	return nil
}

func wrapBackend(err error) error {
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

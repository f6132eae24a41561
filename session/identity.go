package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Role string

const (
	RoleDJ     Role = "dj"
	RolePlayer Role = "player"
)

// Identity is what a device remembers about the game it was in.
type Identity struct {
	Role       Role   `json:"role"`
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Timestamp  int64  `json:"timestamp"` // unix millis
}

// Fresh reports whether the identity was saved within window of now.
func (id Identity) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(time.UnixMilli(id.Timestamp)) < window
}

// Cache stores at most one identity.
type Cache interface {
	Load() (Identity, bool, error)
	Save(id Identity) error
	Clear() error
}

// MemoryCache keeps the identity in memory.
type MemoryCache struct {
	mu  sync.Mutex
	id  Identity
	set bool
}

func (c *MemoryCache) Load() (Identity, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.set, nil
}

func (c *MemoryCache) Save(id Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id, c.set = id, true
	return nil
}

func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id, c.set = Identity{}, false
	return nil
}

// FileCache keeps the identity as JSON in a file.
type FileCache struct {
	Path string
}

// DefaultCachePath is gombiful_session.json in the user config directory.
func DefaultCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gombiful", "gombiful_session.json")
}

func (c FileCache) Load() (Identity, bool, error) {
	data, err := os.ReadFile(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("read session cache: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		// a corrupt cache is as good as none
		return Identity{}, false, nil
	}
	return id, true, nil
}

func (c FileCache) Save(id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
		return fmt.Errorf("create session cache dir: %w", err)
	}
	if err := os.WriteFile(c.Path, data, 0o600); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

func (c FileCache) Clear() error {
	if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}

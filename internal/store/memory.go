package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"aimafia/internal/logging"
)

// MemoryStore keeps one long-term memory text per player.
type MemoryStore interface {
	Read(player string) (string, error)
	Write(player, text string) error
}

// FileMemory stores memories as plain text files.
type FileMemory struct {
	dir string
	mu  sync.Mutex
}

// NewFileMemory creates a memory store rooted at dir.
func NewFileMemory(dir string) *FileMemory {
	return &FileMemory{dir: dir}
}

func (m *FileMemory) path(player string) string {
	return filepath.Join(m.dir, fileName(player)+".txt")
}

// Read returns the player's memory, or "" when none has been written.
func (m *FileMemory) Read(player string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path(player))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read memory for %s: %w", player, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write replaces the player's memory.
func (m *FileMemory) Write(player, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}
	tmp := m.path(player) + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.TrimSpace(text)+"\n"), 0644); err != nil {
		return fmt.Errorf("write memory for %s: %w", player, err)
	}
	if err := os.Rename(tmp, m.path(player)); err != nil {
		return fmt.Errorf("write memory for %s: %w", player, err)
	}
	logging.Get(logging.CategoryStore).Debug("memory updated for %s (%d chars)", player, len(text))
	return nil
}

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"aimafia/internal/perception"
)

// DebugSink writes every provider call to per-player text files. It
// implements perception.TraceStore.
type DebugSink struct {
	dir string
	mu  sync.Mutex
}

// NewDebugSink creates a sink writing into dir.
func NewDebugSink(dir string) *DebugSink {
	return &DebugSink{dir: dir}
}

// StoreTrace records the latest prompt and response for the player's turn
// and appends both to the player's history file.
func (d *DebugSink) StoreTrace(t *perception.Trace) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create debug directory: %w", err)
	}

	player := fileName(t.Label.Player)
	prompt := t.SystemPrompt + "\n\n" + t.UserPrompt
	response := t.Response
	if t.Err != nil {
		response = "ERROR: " + t.Err.Error()
	}

	files := map[string]string{
		fmt.Sprintf("%s_prompt_%d.txt", player, t.Label.Turn):   prompt,
		fmt.Sprintf("%s_response_%d.txt", player, t.Label.Turn): response,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(d.dir, name), []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	f, err := os.OpenFile(filepath.Join(d.dir, player+"_history.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "\n--- Turn %d %s (attempt %d) ---\nPROMPT:\n%s\n\nRESPONSE:\n%s\n",
		t.Label.Turn, t.Label.Phase, t.Label.Attempt, prompt, response)
	return err
}

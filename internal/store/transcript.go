package store

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aimafia/internal/game"
	"aimafia/internal/logging"

	"github.com/zeebo/blake3"
)

// FormatTranscript renders the merged log. Secret lines carry their
// audience so the file can be read after the game.
func FormatTranscript(lines []game.TranscriptLine) string {
	var b strings.Builder
	for _, l := range lines {
		if l.Visibility != game.Public {
			fmt.Fprintf(&b, "(%s) ", l.Visibility)
		}
		b.WriteString(l.Entry.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// TranscriptDigest is the hex blake3 hash of the formatted transcript.
func TranscriptDigest(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// WriteTranscript saves the transcript under dir/transcripts and returns the
// file path and content digest.
func WriteTranscript(dir, gameID string, lines []game.TranscriptLine) (path, digest string, err error) {
	text := FormatTranscript(lines)
	digest = TranscriptDigest(text)

	tdir := filepath.Join(dir, "transcripts")
	if err := os.MkdirAll(tdir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create transcript directory: %w", err)
	}
	path = filepath.Join(tdir, fileName(gameID)+".txt")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", "", fmt.Errorf("write transcript: %w", err)
	}
	logging.Store("transcript for game %s written to %s (%d lines)", gameID, path, len(lines))
	return path, digest, nil
}

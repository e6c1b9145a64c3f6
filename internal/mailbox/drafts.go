package mailbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mailassist/internal/panel"
)

// DraftFile stores the last generated draft of one message on disk.
type DraftFile struct {
	Path string
}

var _ panel.DraftStore = DraftFile{}

// DraftFileFor names the draft file of the message identified by key
// inside dir.
func DraftFileFor(dir, key string) DraftFile {
	sum := sha256.Sum256([]byte(key))
	return DraftFile{Path: filepath.Join(dir, hex.EncodeToString(sum[:12])+".txt")}
}

func (d DraftFile) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(d.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read draft: %w", err)
	}
	return string(data), nil
}

func (d DraftFile) Save(ctx context.Context, text string) error {
	if err := os.MkdirAll(filepath.Dir(d.Path), 0o700); err != nil {
		return fmt.Errorf("create drafts dir: %w", err)
	}
	if err := os.WriteFile(d.Path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

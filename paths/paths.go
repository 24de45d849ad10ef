package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the user-level tjchat directory.
const HomeEnv = "TJCHAT_HOME"

// Paths provides access to all tjchat files for the current user
type Paths struct {
	root string
}

// New resolves the tjchat directory from $TJCHAT_HOME, falling back to ~/.tjchat
func New() (*Paths, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return At(dir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return At(filepath.Join(homeDir, ".tjchat"))
}

// At returns Paths rooted at dir.
func At(dir string) (*Paths, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}
	return &Paths{root: absPath}, nil
}

// Root returns the user-level tjchat directory
func (p *Paths) Root() string {
	return p.root
}

// ConfigPath returns the path to the config file
func (p *Paths) ConfigPath() string {
	return filepath.Join(p.root, "config.json")
}

// SessionPath returns the path to the persisted login session
func (p *Paths) SessionPath() string {
	return filepath.Join(p.root, "session.json")
}

// LogsDir returns the log directory
func (p *Paths) LogsDir() string {
	return filepath.Join(p.root, "logs")
}

// LogPath returns the path to the log file
func (p *Paths) LogPath() string {
	return filepath.Join(p.LogsDir(), "tjchat.log")
}

// Ensure creates the tjchat directory and its subdirectories. The root is
// private to the user because it holds the access token.
func (p *Paths) Ensure() error {
	dirs := []string{
		p.Root(),
		p.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

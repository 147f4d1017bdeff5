package crawl

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/utilitywarehouse/forge-mirror/internal/utils"
)

// Store is the scratch directory fetched metadata is rendered into
// before a run's results are folded into the data branch. It lives
// inside the git dir so it never dirties the working tree.
type Store struct {
	root string
	log  *slog.Logger
}

// NewStore returns a store rooted inside the given git dir
func NewStore(gitDir string, log *slog.Logger) *Store {
	return &Store{
		root: filepath.Join(gitDir, "forge-mirror", "data"),
		log:  log,
	}
}

// Root returns the absolute path of the scratch directory
func (s *Store) Root() string {
	return s.root
}

// Write renders the value as yaml to <root>/<target dir>/<relPath>,
// creating directories as needed. Writes are unconditional overwrites,
// rendering is deterministic so an unchanged record produces an
// identical file and no diff on commit.
func (s *Store) Write(target Target, relPath string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to render %s/%s err:%w", target.Dir(), relPath, err)
	}

	path := filepath.Join(s.root, target.Dir(), filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("unable to create data dir for %s err:%w", relPath, err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("unable to write %s err:%w", path, err)
	}

	s.log.Debug("stored", "target", target, "path", relPath)
	return nil
}

// HasData returns whether anything was written to the store
func (s *Store) HasData() (bool, error) {
	if _, err := os.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("unable to stat data dir err:%w", err)
	}
	empty, err := utils.DirIsEmpty(s.root)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Remove deletes the scratch directory and everything under it
func (s *Store) Remove() error {
	return os.RemoveAll(s.root)
}

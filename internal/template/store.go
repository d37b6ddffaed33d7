package template

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/identitycore/idcenter/pkg/models"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Store persists Templates to YAML files on disk, one file per template,
// matching original_source/templates/models.py's save_to_file/
// load_from_file pair. Loaded templates are read-only values per §3's
// ownership rule; callers never get a pointer into the store's file cache.
type Store struct {
	dir string
}

// NewStore constructs a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("template store: failed to create directory %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func sanitizeName(name string) string {
	return unsafeFilenameChars.ReplaceAllString(strings.ToLower(name), "-")
}

func (s *Store) pathFor(name string) string {
	return filepath.Join(s.dir, sanitizeName(name)+".yaml")
}

// Save writes t to its file, overwriting any prior version with the same
// name.
func (s *Store) Save(t models.Template) error {
	path := s.pathFor(t.Metadata.Name)
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("template store: failed to marshal template %q: %w", t.Metadata.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("template store: failed to write template %q: %w", t.Metadata.Name, err)
	}
	return nil
}

// Load reads the template named name.
func (s *Store) Load(name string) (models.Template, error) {
	path := s.pathFor(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Template{}, fmt.Errorf("template store: failed to read template %q: %w", name, err)
	}
	var t models.Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return models.Template{}, fmt.Errorf("template store: failed to parse template %q: %w", name, err)
	}
	return t, nil
}

// List returns the names of every stored template.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("template store: failed to list directory %q: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(e.Name(), ".yaml"))
		if err != nil {
			continue
		}
		names = append(names, t.Metadata.Name)
	}
	return names, nil
}

// Delete removes the template named name.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.pathFor(name)); err != nil {
		return fmt.Errorf("template store: failed to delete template %q: %w", name, err)
	}
	return nil
}

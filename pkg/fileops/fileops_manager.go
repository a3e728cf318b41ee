package fileops

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manager provides the filesystem surface the tool writes through: the
// packed output document, the plan file, and the render cache.
type Manager interface {
	EnsureDir(path string) error
	WriteFile(path string, content []byte) error
	ReadFile(path string) ([]byte, error)
	FileExists(path string) bool
	WriteObjectAsYAML(path string, object interface{}) error
	ReadObjectFromYAML(path string, object interface{}) error
}

// DefaultManager is the os-backed Manager.
type DefaultManager struct{}

// NewFileOpsManager creates an os-backed file manager
func NewFileOpsManager() Manager {
	return &DefaultManager{}
}

// EnsureDir creates the directory and any missing parents.
func (m *DefaultManager) EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFile writes content, creating parent directories as needed.
func (m *DefaultManager) WriteFile(path string, content []byte) error {
	if err := m.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func (m *DefaultManager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// FileExists reports whether a stat on the path finds anything.
func (m *DefaultManager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// WriteObjectAsYAML marshals object and writes it through WriteFile.
func (m *DefaultManager) WriteObjectAsYAML(path string, object interface{}) error {
	data, err := yaml.Marshal(object)
	if err != nil {
		return fmt.Errorf("marshalling to YAML: %w", err)
	}
	return m.WriteFile(path, data)
}

// ReadObjectFromYAML reads path and unmarshals its YAML into object.
func (m *DefaultManager) ReadObjectFromYAML(path string, object interface{}) error {
	data, err := m.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, object); err != nil {
		return fmt.Errorf("unmarshalling YAML: %w", err)
	}
	return nil
}

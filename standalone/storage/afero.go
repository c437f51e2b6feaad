//go:build !tinygo

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"bitprint/standalone"
)

// Afero is a Provider over an afero filesystem directory
type Afero struct {
	fs  afero.Fs
	dir string
}

// NewAfero creates a provider for dir on fs
func NewAfero(fs afero.Fs, dir string) *Afero {
	if dir == "" {
		dir = "."
	}
	return &Afero{fs: fs, dir: dir}
}

// NewOS creates a provider over a host directory. A missing directory is a
// storage initialization failure.
func NewOS(dir string) (*Afero, error) {
	osFs := afero.NewOsFs()
	info, err := osFs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", standalone.ErrStorageInit, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", standalone.ErrStorageInit, dir)
	}
	return NewAfero(osFs, dir), nil
}

// NewMemory creates an empty in-memory provider
func NewMemory() *Afero {
	return NewAfero(afero.NewMemMapFs(), "/")
}

func (s *Afero) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Open implements Provider
func (s *Afero) Open(name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.path(name))
	if err != nil {
		return nil, wrap(name, err)
	}
	return f, nil
}

// Create implements Provider
func (s *Afero) Create(name string) (io.WriteCloser, error) {
	f, err := s.fs.Create(s.path(name))
	if err != nil {
		return nil, wrap(name, err)
	}
	return f, nil
}

// Remove implements Provider
func (s *Afero) Remove(name string) error {
	if err := s.fs.Remove(s.path(name)); err != nil {
		return wrap(name, err)
	}
	return nil
}

// Exists implements Provider
func (s *Afero) Exists(name string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.path(name))
	if err != nil {
		return false, wrap(name, err)
	}
	return ok, nil
}

// List implements Provider
func (s *Afero) List() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", standalone.ErrStorageInit, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Mode().IsRegular() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

func wrap(name string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", standalone.ErrNotFound, name)
	}
	return fmt.Errorf("%w: %s: %v", standalone.ErrOpen, name, err)
}

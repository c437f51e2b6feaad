// Package storage provides the file store the machine reads source files from
// and writes translated files to.
package storage

import (
	"fmt"
	"io"

	"bitprint/standalone"
)

// Provider is a flat store of named files
type Provider interface {
	// Open opens a file for reading
	Open(name string) (io.ReadCloser, error)
	// Create creates or truncates a file for writing
	Create(name string) (io.WriteCloser, error)
	// Remove deletes a file
	Remove(name string) error
	// Exists reports whether a file exists
	Exists(name string) (bool, error)
	// List returns the names of every regular file in storage order
	List() ([]string, error)
}

// WriteFile stores data under name, replacing any existing content
func WriteFile(p Provider, name string, data []byte) error {
	w, err := p.Create(name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("%w: %s: %v", standalone.ErrOpen, name, err)
	}
	return w.Close()
}

// ReadFile returns the whole content of name
func ReadFile(p Provider, name string) ([]byte, error) {
	r, err := p.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

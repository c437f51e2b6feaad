//go:build rp2040

package main

import (
	"errors"
	"fmt"
	"io"
	"machine"
	"os"
	"path"

	"tinygo.org/x/drivers/sdcard"
	"tinygo.org/x/tinyfs/fatfs"

	"bitprint/standalone"
)

// SDStorage serves the machine's files from a FAT formatted SD card
type SDStorage struct {
	fs  *fatfs.FATFS
	dir string
}

// MountSD brings up the card on bus and mounts its filesystem.
// Any failure is a storage initialization error.
func MountSD(bus *machine.SPI, sck, sdo, sdi, cs machine.Pin, dir string) (*SDStorage, error) {
	sd := sdcard.New(bus, sck, sdo, sdi, cs)
	if err := sd.Configure(); err != nil {
		return nil, fmt.Errorf("%w: sd card: %v", standalone.ErrStorageInit, err)
	}

	filesystem := fatfs.New(&sd)
	filesystem.Configure(&fatfs.Config{SectorSize: 512})
	if err := filesystem.Mount(); err != nil {
		return nil, fmt.Errorf("%w: mount: %v", standalone.ErrStorageInit, err)
	}

	if dir == "" || dir == "." {
		dir = "/"
	}
	return &SDStorage{fs: filesystem, dir: dir}, nil
}

func (s *SDStorage) path(name string) string {
	return path.Join(s.dir, name)
}

// Open implements storage.Provider
func (s *SDStorage) Open(name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.path(name))
	if err != nil {
		return nil, wrap(name, err)
	}
	return f, nil
}

// Create implements storage.Provider
func (s *SDStorage) Create(name string) (io.WriteCloser, error) {
	f, err := s.fs.OpenFile(s.path(name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return nil, wrap(name, err)
	}
	return f, nil
}

// Remove implements storage.Provider
func (s *SDStorage) Remove(name string) error {
	if err := s.fs.Remove(s.path(name)); err != nil {
		return wrap(name, err)
	}
	return nil
}

// Exists implements storage.Provider
func (s *SDStorage) Exists(name string) (bool, error) {
	_, err := s.fs.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if notExist(err) {
		return false, nil
	}
	return false, wrap(name, err)
}

// List implements storage.Provider, in directory order
func (s *SDStorage) List() ([]string, error) {
	d, err := s.fs.Open(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", standalone.ErrStorageInit, err)
	}
	defer d.Close()

	infos, err := d.Readdir(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", standalone.ErrStorageInit, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

func notExist(err error) bool {
	return errors.Is(err, fatfs.FileResultNoFile) || errors.Is(err, fatfs.FileResultNoPath) || errors.Is(err, os.ErrNotExist)
}

func wrap(name string, err error) error {
	if notExist(err) {
		return fmt.Errorf("%w: %s", standalone.ErrNotFound, name)
	}
	return fmt.Errorf("%w: %s: %v", standalone.ErrOpen, name, err)
}

// Package cache keeps translated files next to their sources and decides when
// a translation can be reused.
//
// A translated file starts with the identity line of the source it was made
// from: the source's first line, trimmed. It is valid exactly when that line
// still equals the source's current first line.
package cache

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"bitprint/standalone"
	"bitprint/standalone/config"
	"bitprint/standalone/storage"
)

// Status reports what Prepare did with the translated file
type Status int

const (
	Reused  Status = iota // Identity matched; file used untouched
	Rebuilt               // Identity differed; file replaced
	Created               // No translated file existed
)

func (s Status) String() string {
	switch s {
	case Reused:
		return "reused"
	case Rebuilt:
		return "rebuilt"
	case Created:
		return "created"
	}
	return "unknown"
}

// TranslateFunc translates the complete source src into dst
type TranslateFunc func(src io.Reader, dst io.Writer) error

// Cache prepares translated files for playback
type Cache struct {
	store     storage.Provider
	ext       string
	srcExts   []string
	translate TranslateFunc
	log       *zap.Logger
}

// New creates a cache over store. translate is only called when a
// translated file is missing or stale.
func New(store storage.Provider, cfg config.StorageConfig, translate TranslateFunc, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		store:     store,
		ext:       cfg.CacheExt,
		srcExts:   cfg.SourceExt,
		translate: translate,
		log:       log,
	}
}

// Stream is an open translated file positioned after its identity line
type Stream struct {
	Token string // Identity line the file was translated from

	r *bufio.Reader
	c io.Closer
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close closes the underlying file
func (s *Stream) Close() error {
	return s.c.Close()
}

// IsSource reports whether name carries a source extension. A name whose
// extension folds to the translated-file extension never does, so a
// translated file cannot stand in for its own source.
func (c *Cache) IsSource(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" || strings.EqualFold(ext, c.ext) {
		return false
	}
	for _, e := range c.srcExts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Name returns the translated file belonging to source. An existing file
// whose extension differs only in case is preferred over the canonical name.
func (c *Cache) Name(source string) (string, error) {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	canonical := base + c.ext

	for _, ext := range []string{c.ext, strings.ToLower(c.ext), strings.ToUpper(c.ext)} {
		ok, err := c.store.Exists(base + ext)
		if err != nil {
			return "", err
		}
		if ok {
			return base + ext, nil
		}
	}
	return canonical, nil
}

// Prepare makes sure the translated file of source is current and opens it
// for playback. Any failure to open or create a file aborts; there is no
// fallback to playing the raw source.
func (c *Cache) Prepare(source string) (*Stream, Status, error) {
	log := c.log.With(zap.String("file", source))

	if !c.IsSource(source) {
		return nil, 0, fmt.Errorf("%w: %s is not a source file (want %s)",
			standalone.ErrOpen, source, strings.Join(c.srcExts, ", "))
	}

	src, err := c.store.Open(source)
	if err != nil {
		return nil, 0, err
	}
	defer src.Close()

	srcReader := bufio.NewReader(src)
	rawFirst, err := readLine(srcReader)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", source, err)
	}
	token := strings.TrimSpace(rawFirst)

	name, err := c.Name(source)
	if err != nil {
		return nil, 0, err
	}

	status := Created
	exists, err := c.store.Exists(name)
	if err != nil {
		return nil, 0, err
	}
	if exists {
		log.Info("translated file found, checking identity", zap.String("cache", name))
		cached, err := c.readToken(name)
		if err != nil {
			return nil, 0, err
		}
		if cached == token {
			log.Info("identity matches, reusing translation")
			status = Reused
		} else {
			log.Info("identity differs, rebuilding translation")
			if err := c.store.Remove(name); err != nil {
				return nil, 0, err
			}
			status = Rebuilt
		}
	} else {
		log.Info("no translated file, creating", zap.String("cache", name))
	}

	if status != Reused {
		full := io.MultiReader(strings.NewReader(rawFirst), srcReader)
		if err := c.build(name, token, full); err != nil {
			return nil, 0, err
		}
	}

	stream, err := c.open(name)
	if err != nil {
		return nil, 0, err
	}
	return stream, status, nil
}

// build writes the identity line and the translation of src into name.
// A partially written file is removed.
func (c *Cache) build(name, token string, src io.Reader) error {
	w, err := c.store.Create(name)
	if err != nil {
		return err
	}

	err = c.writeBody(w, token, src)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := c.store.Remove(name); rerr != nil {
			c.log.Warn("failed to remove partial translation", zap.String("cache", name), zap.Error(rerr))
		}
		return fmt.Errorf("translate into %s: %w", name, err)
	}
	return nil
}

func (c *Cache) writeBody(w io.Writer, token string, src io.Reader) error {
	if _, err := io.WriteString(w, token+"\n"); err != nil {
		return err
	}
	return c.translate(src, w)
}

func (c *Cache) readToken(name string) (string, error) {
	s, err := c.open(name)
	if err != nil {
		return "", err
	}
	defer s.Close()
	return s.Token, nil
}

// open opens name and consumes its identity line
func (c *Cache) open(name string) (*Stream, error) {
	f, err := c.store.Open(name)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(f)
	first, err := readLine(r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return &Stream{Token: strings.TrimSpace(first), r: r, c: f}, nil
}

// readLine returns the first line of r including its terminator.
// An empty input yields an empty line.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF {
		err = nil
	}
	return line, err
}

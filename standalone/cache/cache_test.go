package cache

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitprint/standalone"
	"bitprint/standalone/config"
	"bitprint/standalone/storage"
)

// upperTranslator copies every line after the first, uppercased, and counts calls
type upperTranslator struct {
	calls int
	err   error
}

func (u *upperTranslator) translate(src io.Reader, dst io.Writer) error {
	u.calls++
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	lines := strings.SplitAfter(string(data), "\n")
	for _, l := range lines[1:] {
		if _, err := io.WriteString(dst, strings.ToUpper(l)); err != nil {
			return err
		}
	}
	return u.err
}

func newTestCache(t *testing.T) (*Cache, *storage.Afero, *upperTranslator) {
	t.Helper()
	store := storage.NewMemory()
	tr := &upperTranslator{}
	return New(store, config.Default().Storage, tr.translate, nil), store, tr
}

func readAll(t *testing.T, s *Stream) string {
	t.Helper()
	defer s.Close()
	data, err := io.ReadAll(s)
	require.NoError(t, err)
	return string(data)
}

func TestPrepareCreates(t *testing.T) {
	c, store, tr := newTestCache(t)
	require.NoError(t, storage.WriteFile(store, "part.gco", []byte("  ; id V1 \ng1 x1\n")))

	s, status, err := c.Prepare("part.gco")
	require.NoError(t, err)
	assert.Equal(t, Created, status)
	assert.Equal(t, "; id V1", s.Token)
	assert.Equal(t, "G1 X1\n", readAll(t, s))
	assert.Equal(t, 1, tr.calls)

	data, err := storage.ReadFile(store, "part.TXT")
	require.NoError(t, err)
	assert.Equal(t, "; id V1\nG1 X1\n", string(data))
}

func TestPrepareReusesMatchingIdentity(t *testing.T) {
	c, store, tr := newTestCache(t)
	require.NoError(t, storage.WriteFile(store, "part.gco", []byte("V1\ng1 x1\n")))
	cached := "V1\nM X999\n"
	require.NoError(t, storage.WriteFile(store, "part.TXT", []byte(cached)))

	s, status, err := c.Prepare("part.gco")
	require.NoError(t, err)
	assert.Equal(t, Reused, status)
	assert.Equal(t, "M X999\n", readAll(t, s))
	assert.Equal(t, 0, tr.calls)

	data, err := storage.ReadFile(store, "part.TXT")
	require.NoError(t, err)
	assert.Equal(t, cached, string(data))
}

func TestPrepareRebuildsStaleIdentity(t *testing.T) {
	c, store, tr := newTestCache(t)
	require.NoError(t, storage.WriteFile(store, "part.gco", []byte("V2\ng28\n")))
	require.NoError(t, storage.WriteFile(store, "part.TXT", []byte("V1\nM X999\nM Y1\n")))

	s, status, err := c.Prepare("part.gco")
	require.NoError(t, err)
	assert.Equal(t, Rebuilt, status)
	assert.Equal(t, "G28\n", readAll(t, s))
	assert.Equal(t, 1, tr.calls)

	data, err := storage.ReadFile(store, "part.TXT")
	require.NoError(t, err)
	assert.Equal(t, "V2\nG28\n", string(data))
}

func TestPrepareRecognizesLowercaseExtension(t *testing.T) {
	c, store, tr := newTestCache(t)
	require.NoError(t, storage.WriteFile(store, "part.GCO", []byte("V1\n")))
	require.NoError(t, storage.WriteFile(store, "part.txt", []byte("V1\nM84\n")))

	name, err := c.Name("part.GCO")
	require.NoError(t, err)
	assert.Equal(t, "part.txt", name)

	s, status, err := c.Prepare("part.GCO")
	require.NoError(t, err)
	assert.Equal(t, Reused, status)
	assert.Equal(t, "M84\n", readAll(t, s))
	assert.Equal(t, 0, tr.calls)
}

func TestPrepareMissingSource(t *testing.T) {
	c, _, tr := newTestCache(t)

	_, _, err := c.Prepare("nope.gco")
	assert.ErrorIs(t, err, standalone.ErrNotFound)
	assert.Equal(t, 0, tr.calls)
}

func TestPrepareRemovesPartialTranslation(t *testing.T) {
	c, store, tr := newTestCache(t)
	tr.err = errors.New("boom")
	require.NoError(t, storage.WriteFile(store, "part.gco", []byte("V1\ng1 x1\n")))

	_, _, err := c.Prepare("part.gco")
	require.Error(t, err)
	assert.ErrorIs(t, err, tr.err)

	ok, err := store.Exists("part.TXT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrepareEmptySource(t *testing.T) {
	c, store, _ := newTestCache(t)
	require.NoError(t, storage.WriteFile(store, "empty.gco", nil))

	s, status, err := c.Prepare("empty.gco")
	require.NoError(t, err)
	assert.Equal(t, Created, status)
	assert.Equal(t, "", s.Token)
	assert.Equal(t, "", readAll(t, s))
}

func TestPrepareRefusesNonSourceNames(t *testing.T) {
	c, store, tr := newTestCache(t)

	for _, name := range []string{"job.TXT", "job.txt", "job.Txt", "notes.md", "job"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, storage.WriteFile(store, name, []byte("; v1\nG28\nG1 X10\n")))

			s, _, err := c.Prepare(name)
			assert.ErrorIs(t, err, standalone.ErrOpen)
			assert.Nil(t, s)
			assert.Equal(t, 0, tr.calls)

			data, err := storage.ReadFile(store, name)
			require.NoError(t, err)
			assert.Equal(t, "; v1\nG28\nG1 X10\n", string(data))
		})
	}
}

func TestIsSource(t *testing.T) {
	c, _, _ := newTestCache(t)

	assert.True(t, c.IsSource("part.gco"))
	assert.True(t, c.IsSource("part.GCO"))
	assert.True(t, c.IsSource("part.Gco"))
	assert.False(t, c.IsSource("part.TXT"))
	assert.False(t, c.IsSource("part.txt"))
	assert.False(t, c.IsSource("part"))
}

// Package console lists source files and lets the operator pick one by number.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bitprint/standalone"
	"bitprint/standalone/config"
	"bitprint/standalone/storage"
)

// Console is the operator's line-oriented terminal: stdin/stdout on the
// host, a serial port on the board
type Console struct {
	store storage.Provider
	exts  []string
	in    *bufio.Reader
	out   io.Writer
}

// New creates a console over store reading selections from in
func New(store storage.Provider, cfg config.StorageConfig, in io.Reader, out io.Writer) *Console {
	return &Console{
		store: store,
		exts:  cfg.SourceExt,
		in:    bufio.NewReader(in),
		out:   out,
	}
}

// List returns the source files in storage order
func (c *Console) List() ([]string, error) {
	names, err := c.store.List()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, n := range names {
		if c.isSource(n) {
			files = append(files, n)
		}
	}
	return files, nil
}

func (c *Console) isSource(name string) bool {
	for _, ext := range c.exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// PrintList writes the numbered file list
func (c *Console) PrintList(files []string) {
	fmt.Fprintln(c.out, "GCODE files:")
	for i, f := range files {
		fmt.Fprintf(c.out, "%d: %s\n", i+1, f)
	}
	fmt.Fprintln(c.out, "END LIST")
}

// Select prints the file list, reads one line and returns the file it
// numbers. Anything but a listed 1-based index is an invalid selection.
func (c *Console) Select() (string, error) {
	files, err := c.List()
	if err != nil {
		return "", err
	}
	c.PrintList(files)
	fmt.Fprintln(c.out, "Type the number of the file you want to select:")

	input, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", fmt.Errorf("%w: no input: %v", standalone.ErrInvalidSelection, err)
	}

	file, err := Pick(files, input)
	if err != nil {
		fmt.Fprintln(c.out, "Invalid selection.")
		return "", err
	}
	fmt.Fprintf(c.out, "You selected file: %s\n", file)
	return file, nil
}

// Pick resolves a typed 1-based index against files
func Pick(files []string, input string) (string, error) {
	input = strings.TrimSpace(input)
	n, err := strconv.Atoi(input)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a number", standalone.ErrInvalidSelection, input)
	}
	if n < 1 || n > len(files) {
		return "", fmt.Errorf("%w: %d not in 1..%d", standalone.ErrInvalidSelection, n, len(files))
	}
	return files[n-1], nil
}

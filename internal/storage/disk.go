// Package storage keeps uploaded files on local disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Stored describes a saved file.
type Stored struct {
	Name string
	URL  string
	Size int64
}

type Disk struct {
	dir       string
	urlPrefix string
}

// NewDisk stores files under dir and links them below urlPrefix (e.g. "/uploads").
func NewDisk(dir, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &Disk{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (d *Disk) Dir() string { return d.dir }

// Save writes r under a fresh uuid name keeping the original extension.
func (d *Disk) Save(_ context.Context, originalName string, r io.Reader) (*Stored, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	name := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(d.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("storage: write file: %w", err)
	}
	return &Stored{Name: name, URL: path.Join(d.urlPrefix, name), Size: n}, nil
}

// Remove deletes a stored file by name. Missing files are ignored.
func (d *Disk) Remove(name string) error {
	err := os.Remove(filepath.Join(d.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

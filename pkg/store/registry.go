package store

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// GalleryExt is the file extension of galleries managed by a Registry
const GalleryExt = ".utg"

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName checks that name can be used as a gallery name
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// GalleryInfo describes a gallery file found in the data directory
type GalleryInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Open bool   `json:"open"`
}

// Registry manages named galleries stored as <name>.utg under one directory.
// Galleries are opened lazily and stay open until the registry is closed.
type Registry struct {
	dataDir   string
	defaults  GalleryConfig
	galleries map[string]*Gallery
	mutex     sync.Mutex
}

// NewRegistry creates a registry rooted at dataDir. defaults supplies the
// writer and scanner settings for every gallery; its FilePath is ignored.
func NewRegistry(dataDir string, defaults GalleryConfig) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, ioError("mkdir", dataDir, err)
	}
	return &Registry{
		dataDir:   dataDir,
		defaults:  defaults,
		galleries: make(map[string]*Gallery),
	}, nil
}

// Path returns the file path of the named gallery
func (r *Registry) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(r.dataDir, name+GalleryExt), nil
}

// Get returns the named gallery, opening it if needed. It fails with
// ErrNoGallery when the file does not exist.
func (r *Registry) Get(name string) (*Gallery, error) {
	return r.open(name, false)
}

// GetOrCreate returns the named gallery, creating an empty one if needed.
func (r *Registry) GetOrCreate(name string) (*Gallery, error) {
	return r.open(name, true)
}

func (r *Registry) open(name string, create bool) (*Gallery, error) {
	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if g, ok := r.galleries[name]; ok {
		return g, nil
	}

	if !create {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrapf(ErrNoGallery, "%s", name)
			}
			return nil, ioError("stat", path, err)
		}
	}

	config := r.defaults
	config.FilePath = path
	g, err := NewGallery(config)
	if err != nil {
		return nil, err
	}
	if _, err := g.Open(); err != nil {
		return nil, err
	}
	r.galleries[name] = g
	return g, nil
}

// List returns every gallery file in the data directory, sorted by name
func (r *Registry) List() ([]GalleryInfo, error) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return nil, ioError("list", r.dataDir, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	var infos []GalleryInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), GalleryExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), GalleryExt)
		if ValidateName(name) != nil {
			continue
		}
		info := GalleryInfo{Name: name, Path: filepath.Join(r.dataDir, entry.Name())}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
		}
		if g, ok := r.galleries[name]; ok {
			info.Open = true
			info.Size = g.Stats().DataSize
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b GalleryInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos, nil
}

// Release closes the named gallery and forgets it. Releasing a gallery that
// is not open is a no-op.
func (r *Registry) Release(name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	g, ok := r.galleries[name]
	if !ok {
		return nil
	}
	delete(r.galleries, name)
	return g.Close()
}

// Close closes every open gallery
func (r *Registry) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var errs []error
	for name, g := range r.galleries {
		if err := g.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close gallery %s", name))
		}
		delete(r.galleries, name)
	}
	return errors.Join(errs...)
}

// DataDir returns the registry's data directory
func (r *Registry) DataDir() string {
	return r.dataDir
}

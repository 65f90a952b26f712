package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"fabr/internal/project"
	"fabr/internal/route"
	"fabr/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache хранит готовые выходы целей по ключу (корень + опции).
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload stores a fabricated output together with the files it was
// built from, so a hit can be validated without running the pipeline.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Root    string
	Options string

	// Files (paths and hashes of the raw content)
	FilePaths  []string
	FileHashes []project.Digest

	Output []string
}

// OpenDiskCache opens the cache in dir, creating it if needed. An empty dir
// selects $XDG_CACHE_HOME/app (or ~/.cache/app).
func OpenDiskCache(dir, app string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// cacheKey: H( root || options || schema ).
func cacheKey(root string, opts route.Options) project.Digest {
	return project.Combine(
		project.HashString(root),
		project.HashString(optionsKey(opts)),
		project.HashString(strconv.Itoa(int(diskCacheSchemaVersion))),
	)
}

func optionsKey(opts route.Options) string {
	return opts.Inline.String() + "|autosave=" + strconv.FormatBool(opts.AutoSave) + "|echo=" + strconv.FormatBool(opts.Echo)
}

func (c *DiskCache) pathFor(key project.Digest) string {
	// выходы лежат в подкаталоге "out"
	return filepath.Join(c.dir, "out", key.String()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(f.Name()))
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// Lookup returns the cached output for root when every recorded file still
// hashes the same through reader.
func (c *DiskCache) Lookup(reader source.Reader, root string, opts route.Options) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	var payload DiskPayload
	ok, err := c.Get(cacheKey(root, opts), &payload)
	if err != nil || !ok {
		return nil, false
	}
	if payload.Root != root || payload.Options != optionsKey(opts) || len(payload.FilePaths) != len(payload.FileHashes) {
		return nil, false
	}
	for i, path := range payload.FilePaths {
		data, err := reader.ReadFile(path)
		if err != nil || project.HashBytes(data) != payload.FileHashes[i] {
			return nil, false
		}
	}
	return payload.Output, true
}

// Store records output for root with the hashes of the files it read.
func (c *DiskCache) Store(reader source.Reader, root string, opts route.Options, files []string, output []string) error {
	if c == nil {
		return nil
	}
	payload := &DiskPayload{
		Schema:     diskCacheSchemaVersion,
		Root:       root,
		Options:    optionsKey(opts),
		FilePaths:  files,
		FileHashes: make([]project.Digest, len(files)),
		Output:     output,
	}
	for i, path := range files {
		data, err := reader.ReadFile(path)
		if err != nil {
			return err
		}
		payload.FileHashes[i] = project.HashBytes(data)
	}
	return c.Put(cacheKey(root, opts), payload)
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "out"))
}

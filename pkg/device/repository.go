package device

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/bsdl"
)

// Repository looks up a fresh Device definition by its captured IDCODE. Each
// call returns an independently constructed Device so that two identical
// chips in a chain never share mutable cell state.
type Repository interface {
	Lookup(id uint32) (*Device, error)
}

// MemoryRepository loads BSDL files ahead of time and serves Lookup by
// rebuilding a Device from the matching file on every call, matching exact
// IDCODEs before falling back to wildcard patterns.
type MemoryRepository struct {
	mu        sync.RWMutex
	exact     map[uint32]*bsdl.BSDLFile
	wildcards []wildcardEntry
}

type wildcardEntry struct {
	pattern IDCodePattern
	file    *bsdl.BSDLFile
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{exact: make(map[uint32]*bsdl.BSDLFile)}
}

// AddFile registers a parsed BSDL file under the IDCODE pattern its
// IDCODE_REGISTER attribute declares.
func (r *MemoryRepository) AddFile(file *bsdl.BSDLFile) error {
	if file == nil || file.Entity == nil {
		return fmt.Errorf("device: invalid BSDL file")
	}
	info := file.Entity.GetDeviceInfo()
	if info == nil || info.IDCode == "" {
		return fmt.Errorf("device: BSDL missing IDCODE_REGISTER")
	}
	pattern, err := parseIDCodePattern(info.IDCode)
	if err != nil || pattern == nil {
		return fmt.Errorf("device: invalid IDCODE_REGISTER: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pattern.Mask == 0xFFFFFFFF {
		r.exact[pattern.Value] = file
		return nil
	}
	r.wildcards = append(r.wildcards, wildcardEntry{pattern: *pattern, file: file})
	return nil
}

// Lookup implements Repository: an exact IDCODE match wins, otherwise the
// first registered wildcard pattern that matches is rebuilt and returned.
func (r *MemoryRepository) Lookup(id uint32) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if file, ok := r.exact[id]; ok {
		return NewDeviceFromBSDL(file)
	}
	for _, entry := range r.wildcards {
		if entry.pattern.Matches(id) {
			return NewDeviceFromBSDL(entry.file)
		}
	}
	return nil, fmt.Errorf("device: no BSDL match for IDCODE 0x%08X", id)
}

// LoadFiles parses the given BSDL file paths and adds each to the repository.
func (r *MemoryRepository) LoadFiles(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	parser, err := bsdl.NewParser()
	if err != nil {
		return err
	}
	for _, path := range paths {
		file, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("device: parse %s: %w", path, err)
		}
		if err := r.AddFile(file); err != nil {
			return fmt.Errorf("device: add %s: %w", path, err)
		}
	}
	return nil
}

// LoadDir recursively loads every .bsd/.bsdl/.bsm file under root.
func (r *MemoryRepository) LoadDir(root string) error {
	parser, err := bsdl.NewParser()
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isBSDLFile(path) {
			return nil
		}
		file, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("device: parse %s: %w", path, err)
		}
		if err := r.AddFile(file); err != nil {
			return fmt.Errorf("device: add %s: %w", path, err)
		}
		return nil
	})
}

func isBSDLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bsd", ".bsdl", ".bsm":
		return true
	default:
		return false
	}
}

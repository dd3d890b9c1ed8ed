// Package staging keeps captured report files on local disk until they are uploaded.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

var ErrSealed = errors.New("staging area is sealed")

// Area is a private directory keyed by file name. Names are unique per run.
type Area struct {
	dir string

	mu     sync.Mutex
	files  []domain.CapturedFile
	byName map[string]int
	sealed bool
}

// New creates the area in a fresh directory under parent. An empty parent
// means the system temporary directory.
func New(parent string) (*Area, error) {
	dir, err := os.MkdirTemp(parent, "airregi-staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Area{dir: dir, byName: make(map[string]int)}, nil
}

func (a *Area) Dir() string {
	return a.dir
}

// Put stores data under name on behalf of reportID.
func (a *Area) Put(reportID, name string, data []byte) (domain.CapturedFile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		return domain.CapturedFile{}, ErrSealed
	}
	path, err := a.pathOf(name)
	if err != nil {
		return domain.CapturedFile{}, err
	}
	if _, exists := a.byName[name]; exists {
		return domain.CapturedFile{}, fmt.Errorf("file %s is already staged", name)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return domain.CapturedFile{}, fmt.Errorf("failed to write %s: %w", name, err)
	}

	file := domain.CapturedFile{
		Name:     name,
		ReportID: reportID,
		Path:     path,
		Size:     int64(len(data)),
	}
	a.byName[name] = len(a.files)
	a.files = append(a.files, file)
	return file, nil
}

func (a *Area) Read(file domain.CapturedFile) ([]byte, error) {
	a.mu.Lock()
	_, ok := a.byName[file.Name]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("file %s is not staged", file.Name)
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	return data, nil
}

// Files returns the staged files in the order they were put.
func (a *Area) Files() []domain.CapturedFile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.CapturedFile(nil), a.files...)
}

// Seal makes the area read-only.
func (a *Area) Seal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
}

// Cleanup removes the directory and everything in it.
func (a *Area) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	a.files = nil
	a.byName = make(map[string]int)
	return os.RemoveAll(a.dir)
}

// pathOf rejects names that would leave the staging directory.
func (a *Area) pathOf(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(a.dir, name)
	if !strings.HasPrefix(path, a.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("file name escapes staging directory: %q", name)
	}
	return path, nil
}

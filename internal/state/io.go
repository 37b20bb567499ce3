package state

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// FullReader abstracts config storage, tests use MockFullReader.
type FullReader interface {
	Normalize(key string) string
	// nil,nil = not found
	ReadAll(key string) ([]byte, error)
}

type OsFullReader struct {
	base string
}

func NewOsFullReader() *OsFullReader { return &OsFullReader{} }

// SetBase makes relative includes resolve against main config directory.
func (self *OsFullReader) SetBase(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	self.base = abs
}

func (self *OsFullReader) Normalize(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(self.base, path))
}

func (*OsFullReader) ReadAll(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Annotatef(err, "read path=%s", path)
	}
	return b, nil
}

type MockFullReader struct {
	Map map[string]string
}

func NewMockFullReader(sources map[string]string) *MockFullReader {
	return &MockFullReader{Map: sources}
}

func (self *MockFullReader) Normalize(name string) string {
	return filepath.Clean(name)
}

func (self *MockFullReader) ReadAll(name string) ([]byte, error) {
	if s, ok := self.Map[name]; ok {
		return []byte(s), nil
	}
	return nil, nil
}

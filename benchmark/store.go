package benchmark

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-j2kbench/util"
)

// Fixture file extensions.
const (
	RawExt        = ".RAW"
	CodestreamExt = ".j2k"
	JP2Ext        = ".jp2"
)

// FixtureStore resolves fixture names to file contents.
type FixtureStore interface {
	// RawFrame returns the uncompressed frame for name.
	RawFrame(name string) ([]byte, error)
	// Codestream returns the reference codestream for name.
	Codestream(name string) ([]byte, error)
}

// DirStore reads <RawDir>/<N>.RAW and <CodestreamDir>/<N>.j2k. Names and extensions
// match ignoring case, so ct1.raw serves fixture CT1.
type DirStore struct {
	RawDir        string
	CodestreamDir string
}

// NewDirStore creates a store over two fixture directories.
func NewDirStore(rawDir, codestreamDir string) *DirStore {
	return &DirStore{RawDir: rawDir, CodestreamDir: codestreamDir}
}

// RawPath returns the raw frame path for name: the file on disk when one matches,
// otherwise <RawDir>/<name>.RAW.
func (s *DirStore) RawPath(name string) string {
	return resolvePath(s.RawDir, name, RawExt)
}

// CodestreamPath returns the codestream path for name, resolved like RawPath.
func (s *DirStore) CodestreamPath(name string) string {
	return resolvePath(s.CodestreamDir, name, CodestreamExt)
}

func resolvePath(dir, name, ext string) string {
	exact := filepath.Join(dir, name+ext)
	if _, err := os.Stat(exact); err == nil {
		return exact
	}
	files, _ := util.ListFixtureFiles(dir, ext)
	if file, ok := util.IndexByName(files)[strings.ToUpper(name)]; ok {
		return file.Path
	}
	return exact
}

// RawFrame implements FixtureStore.
func (s *DirStore) RawFrame(name string) ([]byte, error) {
	return readFixture(name, s.RawPath(name))
}

// Codestream implements FixtureStore.
func (s *DirStore) Codestream(name string) ([]byte, error) {
	return readFixture(name, s.CodestreamPath(name))
}

// FixtureAvailability reports which files of a fixture exist on disk.
type FixtureAvailability struct {
	Fixture        FixtureDescriptor
	RawSize        int64
	CodestreamSize int64
	HasRaw         bool
	HasCodestream  bool
}

// Inventory checks every fixture against the files present in the store's
// directories. Missing directories are reported as missing files.
func (s *DirStore) Inventory(fixtures []FixtureDescriptor) []FixtureAvailability {
	raws, _ := util.ListFixtureFiles(s.RawDir, RawExt)
	streams, _ := util.ListFixtureFiles(s.CodestreamDir, CodestreamExt)
	rawIndex := util.IndexByName(raws)
	streamIndex := util.IndexByName(streams)

	out := make([]FixtureAvailability, 0, len(fixtures))
	for _, f := range fixtures {
		a := FixtureAvailability{Fixture: f}
		if file, ok := rawIndex[strings.ToUpper(f.Name)]; ok {
			a.HasRaw, a.RawSize = true, file.Size
		}
		if file, ok := streamIndex[strings.ToUpper(f.Name)]; ok {
			a.HasCodestream, a.CodestreamSize = true, file.Size
		}
		out = append(out, a)
	}
	return out
}

func readFixture(name, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FixtureMissingError{Fixture: name, Path: path, Err: err}
	}
	if len(data) == 0 {
		return nil, &FixtureMissingError{Fixture: name, Path: path, Err: ErrEmptyInput}
	}
	return data, nil
}

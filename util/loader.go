package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FixtureFile represents a fixture file on disk.
type FixtureFile struct {
	// Name is the file name without its extension, e.g. "CT1".
	Name string
	// Path is the path to the fixture file.
	Path string
	// Ext is the file extension including the dot, e.g. ".j2k".
	Ext string
	// Size is the file size in bytes.
	Size int64
}

// ListFixtureFiles lists the regular files in a directory whose extension matches
// one of exts (case-insensitive). An empty exts list matches every file.
//
// Arguments:
// - dir: Directory path containing fixture files.
// - exts: Extensions to keep, including the dot.
//
// Returns:
// - []FixtureFile: The matching files sorted by name.
// - error: Error if the directory cannot be read.
func ListFixtureFiles(dir string, exts ...string) ([]FixtureFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FixtureFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if !matchesExt(ext, exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, FixtureFile{
			Name: strings.TrimSuffix(entry.Name(), ext),
			Path: filepath.Join(dir, entry.Name()),
			Ext:  ext,
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// IndexByName maps upper-cased fixture names to their files.
func IndexByName(files []FixtureFile) map[string]FixtureFile {
	index := make(map[string]FixtureFile, len(files))
	for _, f := range files {
		index[strings.ToUpper(f.Name)] = f
	}
	return index
}

func matchesExt(ext string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

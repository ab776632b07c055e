package compile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFile names the gitignore-style file whose patterns [Discover] skips.
const IgnoreFile = ".glyphfixignore"

var sourceExts = map[string]struct{}{
	".cpp": {},
	".cc":  {},
	".cxx": {},
}

// Discover returns the C++ source files under dir, sorted. Hidden files and
// directories are skipped, as are paths matched by an [IgnoreFile] in dir.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("compile: discover: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("compile: discover: %s is not a directory", dir)
	}

	gi, _ := ignore.CompileIgnoreFile(filepath.Join(dir, IgnoreFile))

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if gi != nil && gi.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if _, ok := sourceExts[strings.ToLower(filepath.Ext(name))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("compile: discover %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

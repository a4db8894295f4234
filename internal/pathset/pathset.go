package pathset

import (
	"os"
	"path/filepath"
	"strings"
)

// Separator delimits elements of a search-path string.
const Separator = ":"

// Split breaks a search-path string into its ordered elements.
// The empty string yields an empty list rather than one empty element.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Join is the inverse of Split.
func Join(elems []string) string {
	return strings.Join(elems, Separator)
}

// RemoveAll drops every element of path equal to one of toRemove and rejoins
// the rest in their original order. All occurrences of a target are removed.
// Empty targets stand for "nothing was activated" and are ignored, as are
// targets that do not occur in path.
func RemoveAll(path string, toRemove ...string) string {
	targets := make(map[string]struct{}, len(toRemove))
	for _, t := range toRemove {
		if t == "" {
			continue
		}
		targets[t] = struct{}{}
	}
	if len(targets) == 0 {
		return path
	}

	elems := Split(path)
	kept := make([]string, 0, len(elems))
	for _, e := range elems {
		if _, drop := targets[e]; drop {
			continue
		}
		kept = append(kept, e)
	}
	return Join(kept)
}

// Prepend places dirs, in the given order, in front of path.
func Prepend(path string, dirs ...string) string {
	elems := make([]string, 0, len(dirs)+1)
	elems = append(elems, dirs...)
	if path != "" {
		elems = append(elems, path)
	}
	return Join(elems)
}

// Count reports how many elements of path equal dir.
func Count(path, dir string) int {
	n := 0
	for _, e := range Split(path) {
		if e == dir {
			n++
		}
	}
	return n
}

// Contains reports whether dir is an element of path.
func Contains(path, dir string) bool {
	return Count(path, dir) > 0
}

// LookPath searches the elements of path, in order, for an executable
// regular file called name and returns its full path. Empty elements are
// skipped rather than treated as the working directory.
func LookPath(path, name string) (string, bool) {
	for _, dir := range Split(path) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Mode().Perm()&0o111 == 0 {
			continue
		}
		return candidate, true
	}
	return "", false
}

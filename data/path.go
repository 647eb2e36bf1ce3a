package data

import "strings"

// NormalizeDir strips trailing slashes from a directory path.
// An empty result normalizes to the root "/".
func NormalizeDir(dirPath string) string {
	dirPath = strings.TrimRight(dirPath, "/")
	if dirPath == "" {
		return "/"
	}

	return dirPath
}

// DirPrefix returns the prefix every child path of dir starts with.
// dir must already be normalized.
func DirPrefix(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}

	return dir + "/"
}

// IsDirectChild reports whether path lies directly below the normalized dir.
// The directory itself and deeper descendants are excluded, as are siblings
// sharing a name prefix ("/ab" is not a child of "/a").
func IsDirectChild(dir, path string) bool {
	if path == dir {
		return false
	}

	prefix := DirPrefix(dir)
	if !strings.HasPrefix(path, prefix) {
		return false
	}

	return !strings.Contains(path[len(prefix):], "/")
}

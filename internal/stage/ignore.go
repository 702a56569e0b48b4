package stage

import (
	"path"
	"strings"
)

// Ignored reports whether a source entry named name is never staged or
// mirrored: hidden directories (.git, .cache), editor swap, backup and lock
// files, and OS metadata. Hidden regular files such as .babelrc are staged.
func Ignored(name string, isDir bool) bool {
	if isDir {
		return len(name) > 1 && strings.HasPrefix(name, ".") && name != ".."
	}
	switch {
	case strings.HasPrefix(name, ".#"),
		strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".swp"),
		strings.HasSuffix(name, ".swx"),
		len(name) > 1 && strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"):
		return true
	}
	return name == ".DS_Store" || name == "Thumbs.db" || name == "4913"
}

// ignoredRel applies Ignored to every segment of a slash-separated relative
// path; all but the last segment are directories.
func ignoredRel(rel string, isDir bool) bool {
	dir, base := path.Split(rel)
	for _, seg := range strings.Split(strings.TrimSuffix(dir, "/"), "/") {
		if seg != "" && Ignored(seg, true) {
			return true
		}
	}
	return Ignored(base, isDir)
}

//go:build !linux

package watcher

// DetectFilesystemType has no portable implementation outside Linux; the
// watcher then relies on fsnotify unless polling is forced.
func DetectFilesystemType(string) FilesystemType {
	return FSTypeUnknown
}

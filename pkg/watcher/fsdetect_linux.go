//go:build linux

package watcher

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Magic numbers from statfs(2).
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517b
	cifsMagic      = 0xff534d42
	smb2Magic      = 0xfe534d42
	fuseSuperMagic = 0x65735546
	v9fsMagic      = 0x01021997
)

// DetectFilesystemType classifies the filesystem holding path. A missing
// file is classified by its directory.
func DetectFilesystemType(path string) FilesystemType {
	target := path
	if _, err := os.Stat(target); err != nil {
		target = filepath.Dir(path)
	}
	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		return FSTypeUnknown
	}
	return classifyMagic(int64(st.Type))
}

func classifyMagic(magic int64) FilesystemType {
	switch uint32(magic) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, cifsMagic, smb2Magic:
		return FSTypeSMB
	case fuseSuperMagic:
		return FSTypeFUSE
	case v9fsMagic:
		return FSType9P
	}
	return FSTypeLocal
}

package system

import (
	"fmt"
	"os"
	"path/filepath"
)

// scratchBases are tried in order; the first existing one hosts the scratch dir
var scratchBases = []string{"/run/shm", "/dev/shm", "/tmp"}

// ScratchDirName is the directory created under the tmpfs base
const ScratchDirName = "vc-mounter"

// ScratchDir returns (and creates, mode 0700) the tmpfs-backed directory
// holding the stable device links.
func ScratchDir() (string, error) {
	return scratchDirIn(scratchBases)
}

func scratchDirIn(bases []string) (string, error) {
	for _, base := range bases {
		if !IsDir(base) {
			continue
		}
		dir := filepath.Join(base, ScratchDirName)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create scratch directory: %w", err)
		}
		return dir, nil
	}
	return "", fmt.Errorf("no scratch directory base found (tried %v)", bases)
}

// ForceSymlink creates link pointing at target, replacing whatever was
// there before.
func ForceSymlink(target, link string) error {
	if _, err := os.Lstat(link); err == nil {
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("failed to replace %s: %w", link, err)
		}
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %w", link, target, err)
	}
	return nil
}

// Exists reports whether path exists, following symlinks
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsBlockDevice reports whether path is a block device, following symlinks
func IsBlockDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	mode := info.Mode()
	return mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0
}

// IsExecutable reports whether path is a regular file with an execute bit
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}

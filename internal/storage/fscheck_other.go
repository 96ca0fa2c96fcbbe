//go:build !darwin && !linux

package storage

// detectFilesystemType cannot inspect mounts here; report an unknown local type.
func detectFilesystemType(path string) (string, error) {
	return "unknown", nil
}

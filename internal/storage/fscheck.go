package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// remoteFilesystems lists filesystem types whose locking SQLite cannot rely on.
var remoteFilesystems = []string{"afpfs", "cifs", "nfs", "smbfs", "smb2", "webdav"}

// checkLocalFilesystem rejects database paths that live on a network mount.
// Workspaces are often checked out on shared drives, so the state db default
// (inside the workspace) can end up remote.
func checkLocalFilesystem(path string, detect func(string) (string, error)) error {
	existing, err := existingAncestor(path)
	if err != nil {
		return fmt.Errorf("resolve database path %q: %w", path, err)
	}

	fsType, err := detect(existing)
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", existing, err)
	}

	if isRemote(fsType) {
		return fmt.Errorf("database path %q is on network filesystem %q; set state.path to a local file", path, fsType)
	}
	return nil
}

// existingAncestor walks up from path until it finds something that exists.
func existingAncestor(path string) (string, error) {
	cur, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err = os.Stat(cur); err == nil {
			return cur, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no existing parent for %q", path)
		}
		cur = parent
	}
}

func isRemote(fsType string) bool {
	fsType = strings.ToLower(strings.TrimSpace(fsType))
	for _, remote := range remoteFilesystems {
		if fsType == remote {
			return true
		}
	}
	return false
}

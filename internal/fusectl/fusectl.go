package fusectl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kriansa/fuse-abort/internal/log"
	"github.com/kriansa/fuse-abort/internal/mount"
	"github.com/kriansa/fuse-abort/internal/mountinfo"
)

// ErrNotMounted is returned when the target does not resolve to any
// active FUSE connection
var ErrNotMounted = errors.New("no fuse mount matches target")

// Controller resolves mountpoints to FUSE connections and drives the
// fusectl control filesystem.
//
// The mount table is a shared kernel resource: another process may mount
// or unmount between our scan and the abort write. Nothing here guards
// against that race.
type Controller struct {
	controlDir    string
	mountInfoPath string
	mounter       mount.Mounter
}

// New creates a Controller operating on the given fusectl directory and
// mount table
func New(controlDir, mountInfoPath string, mounter mount.Mounter) *Controller {
	return &Controller{
		controlDir:    controlDir,
		mountInfoPath: mountInfoPath,
		mounter:       mounter,
	}
}

// EnsureMounted makes sure the fusectl control filesystem is available
// at the control directory, mounting it if it is not
func (c *Controller) EnsureMounted() error {
	entries, err := mountinfo.Parse(c.mountInfoPath)
	if err != nil {
		return fmt.Errorf("read mount table: %w", err)
	}

	for _, entry := range entries {
		if entry.MountPoint == c.controlDir {
			log.Debug("control filesystem already mounted", "dir", c.controlDir)
			return nil
		}
	}

	log.Debug("mounting control filesystem", "dir", c.controlDir)
	if err := c.mounter.Mount("fusectl", c.controlDir, "fusectl"); err != nil {
		return fmt.Errorf("mount control filesystem: %w", err)
	}

	return nil
}

// ResolveConnection resolves a target directory to the id of the FUSE
// connection backing it. Returns ErrNotMounted when nothing matches.
//
// Matching is substring containment of target against the mountpoint
// column, not path-component-aware comparison. This is inherited from
// the shell tool this replaces and can false-positive on unrelated
// mounts whose path merely contains target (e.g. "/mnt/data" matches
// "/mnt/database"). Kept as-is.
//
// When several entries match, the last-listed one wins, again matching
// the original's sequential text scan.
func (c *Controller) ResolveConnection(target string) (string, error) {
	entries, err := mountinfo.Parse(c.mountInfoPath)
	if err != nil {
		return "", fmt.Errorf("read mount table: %w", err)
	}

	minor := -1
	for _, entry := range entries {
		if !strings.Contains(entry.FSType, "fuse") {
			continue
		}
		if !strings.Contains(entry.MountPoint, target) {
			continue
		}

		log.Debug("matched fuse mount",
			"mountpoint", entry.MountPoint,
			"fstype", entry.FSType,
			"device", fmt.Sprintf("%d:%d", entry.DevMajor, entry.DevMinor),
		)
		minor = entry.DevMinor
	}

	if minor < 0 {
		return "", ErrNotMounted
	}

	return strconv.Itoa(minor), nil
}

// Abort writes to the connection's abort control file, forcing the
// kernel to tear the connection down. Pending I/O on the mount is woken
// with errors, which unblocks unmounting even when the userspace daemon
// is unresponsive.
func (c *Controller) Abort(id string) error {
	path := filepath.Join(c.controlDir, id, "abort")

	// The kernel ignores the payload, any write triggers the abort
	msg := fmt.Sprintf("aborting fuse connection %s\n", id)
	if err := os.WriteFile(path, []byte(msg), 0o200); err != nil {
		return fmt.Errorf("abort connection %s: %w", id, err)
	}

	log.Info("aborted fuse connection", "id", id)
	return nil
}

// Detach lazily unmounts the target after a successful abort
func (c *Controller) Detach(target string) error {
	if err := c.mounter.LazyUnmount(target); err != nil {
		return fmt.Errorf("detach %s: %w", target, err)
	}

	return nil
}

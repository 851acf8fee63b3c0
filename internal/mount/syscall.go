package mount

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kriansa/fuse-abort/internal/log"
)

// SyscallMounter implements Mounter using Linux syscalls
type SyscallMounter struct{}

// NewSyscallMounter creates a new syscall-based mounter
func NewSyscallMounter() *SyscallMounter {
	return &SyscallMounter{}
}

// Mount mounts the source to the target directory
func (m *SyscallMounter) Mount(source, target, fsType string) error {
	log.Debug("mounting filesystem", "source", source, "target", target, "type", fsType)

	if err := unix.Mount(source, target, fsType, 0, ""); err != nil {
		return fmt.Errorf("mount %s to %s: %w", source, target, err)
	}

	log.Debug("mounted successfully", "source", source, "target", target)
	return nil
}

// LazyUnmount detaches the target mount
// MNT_DETACH rather than MNT_FORCE: force-unmounting can corrupt data
// still in flight, detaching only removes the mount from the hierarchy
func (m *SyscallMounter) LazyUnmount(target string) error {
	log.Debug("detaching mount", "target", target)

	if err := unix.Unmount(target, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("unmount %s: %w", target, err)
	}

	log.Debug("detached successfully", "target", target)
	return nil
}

package mountinfo

// Entry represents one row of /proc/self/mountinfo
//
// Column schema per proc(5): mount id, parent id, major:minor device id,
// root, mount point, mount options, zero or more optional fields, a "-"
// separator, filesystem type, mount source, super options.
type Entry struct {
	// MountID is the unique identifier of the mount
	MountID int
	// ParentID is the mount id of the parent mount
	ParentID int
	// DevMajor and DevMinor identify the st_dev of files on this
	// filesystem. For FUSE mounts the minor number doubles as the
	// connection id under the fusectl control filesystem.
	DevMajor int
	DevMinor int
	// Root is the pathname of the directory that forms the root of
	// this mount, relative to the filesystem
	Root string
	// MountPoint is where the mount is attached
	MountPoint string
	// Options are the per-mount options
	Options string
	// OptionalFields holds tags like "shared:N" or "master:N"
	OptionalFields []string
	// FSType is the filesystem type, e.g. "fuse.sshfs" or "fusectl"
	FSType string
	// Source is the mount source (device, or filesystem-specific)
	Source string
	// SuperOptions are the per-superblock options
	SuperOptions string
}

package mount

// Mounter defines the interface for the mount syscalls this tool needs.
// Callers take the interface so the resolve/abort logic can be exercised
// without root.
type Mounter interface {
	// Mount mounts the source to the target directory with the given
	// filesystem type
	Mount(source, target, fsType string) error
	// LazyUnmount detaches the target from the filesystem hierarchy,
	// letting the actual unmount happen once it is no longer busy
	LazyUnmount(target string) error
}

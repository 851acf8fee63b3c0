//go:build integration

package integration

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// uniqueMountDir generates a unique mountpoint path for a test
func uniqueMountDir(t *testing.T) string {
	return fmt.Sprintf("/tmp/fuse-%s-%d", strings.ToLower(t.Name()), time.Now().UnixNano()%10000)
}

// runTool runs fuse-abort in the VM and returns combined output plus the
// remote exit code
func runTool(t *testing.T, args string) (string, int) {
	t.Helper()

	output, err := testVM.Run(fmt.Sprintf("sudo %s %s", toolPath, args))
	if err == nil {
		return output, 0
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return output, exitErr.ExitStatus()
	}

	t.Fatalf("running fuse-abort failed before exit: %v (%s)", err, output)
	return "", -1
}

// mountSSHFS mounts an sshfs filesystem at dir inside the VM and
// registers cleanup. sshfs is just a convenient FUSE daemon that is
// guaranteed to be present in the test image.
func mountSSHFS(t *testing.T, dir string) {
	t.Helper()

	t.Cleanup(func() {
		_, _ = testVM.Run(fmt.Sprintf("fusermount -u %s 2>/dev/null; sudo umount -l %s 2>/dev/null; rmdir %s 2>/dev/null || true", dir, dir, dir))
	})

	output, err := testVM.Run(fmt.Sprintf("mkdir -p %s && sshfs -o StrictHostKeyChecking=no localhost:/home/fedora %s", dir, dir))
	require.NoError(t, err, "mount sshfs at %s: %s", dir, output)

	require.True(t, isFuseMounted(t, dir), "sshfs should be mounted at %s", dir)
}

// isFuseMounted reports whether dir appears as a fuse mount in the VM's
// mount table
func isFuseMounted(t *testing.T, dir string) bool {
	t.Helper()

	output, _ := testVM.Run(fmt.Sprintf("awk '$5 == \"%s\"' /proc/self/mountinfo", dir))
	return strings.Contains(output, "fuse")
}

// connectionMinor returns the fuse connection minor for dir, resolved
// independently of the tool under test
func connectionMinor(t *testing.T, dir string) string {
	t.Helper()

	output, err := testVM.Run(fmt.Sprintf("awk '$5 == \"%s\" { split($3, d, \":\"); print d[2] }' /proc/self/mountinfo", dir))
	require.NoError(t, err, "resolve connection minor for %s", dir)

	minor := strings.TrimSpace(output)
	require.NotEmpty(t, minor, "expected %s to have a fuse connection", dir)
	return minor
}

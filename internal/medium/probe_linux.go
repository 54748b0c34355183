//go:build linux

// Package medium classifies the storage device backing a path as rotating,
// non-rotating, or unknown. The build scheduler keys its concurrency policy
// on the answer: concurrent seeks are cheap on flash and expensive on
// spinning disks.
package medium

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/basecall-labs/sigseek/api"
)

// Probe inspects /sys/dev/block for the device holding path. Any failure
// along the way (missing path, unusual device topology, sysfs absent in a
// container) degrades to MediumUnknown rather than an error.
func Probe(path string) api.Medium {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return api.MediumUnknown
	}
	dev := uint64(st.Dev)
	node := fmt.Sprintf("/sys/dev/block/%d:%d", unix.Major(dev), unix.Minor(dev))
	sysfs, err := filepath.EvalSymlinks(node)
	if err != nil {
		return api.MediumUnknown
	}
	// A partition (sda1) has no queue/ directory; ascend to the parent
	// device (sda), which sits directly under .../block.
	for filepath.Base(filepath.Dir(sysfs)) != "block" {
		parent := filepath.Dir(sysfs)
		if parent == sysfs || parent == "/" {
			return api.MediumUnknown
		}
		sysfs = parent
	}
	data, err := os.ReadFile(filepath.Join(sysfs, "queue", "rotational"))
	if err != nil {
		return api.MediumUnknown
	}
	if strings.TrimSpace(string(data)) == "1" {
		return api.MediumRotating
	}
	return api.MediumNonRotating
}

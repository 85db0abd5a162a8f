package host

import (
	"fmt"
	"strings"

	"github.com/nace/vcmounter/internal/system"
)

// fsck exit status bits, see fsck(8)
var fsckMeanings = []struct {
	bit     int
	meaning string
}{
	{1, "errors corrected"},
	{2, "system should be rebooted"},
	{4, "errors left uncorrected"},
	{8, "operational error"},
	{16, "usage or syntax error"},
	{32, "canceled by user request"},
	{128, "shared-library error"},
}

// FsckError is a failed batched filesystem check
type FsckError struct {
	Code int
}

func (e *FsckError) Error() string {
	return fmt.Sprintf("fsck errors (exit %d: %s)", e.Code, FsckMeaning(e.Code))
}

// FsckMeaning describes an fsck exit status
func FsckMeaning(code int) string {
	if code == 0 {
		return "no errors"
	}
	if code < 0 {
		return "not run"
	}
	var parts []string
	for _, m := range fsckMeanings {
		if code&m.bit != 0 {
			parts = append(parts, m.meaning)
		}
	}
	if len(parts) == 0 {
		return "unknown status"
	}
	return strings.Join(parts, ", ")
}

// FsckOK reports whether an fsck exit status leaves the filesystems usable
func FsckOK(code int) bool {
	return code == 0 || code == 1
}

// FilesystemChecker runs fsck over several devices in one call
type FilesystemChecker struct {
	runner system.Runner
}

// NewFilesystemChecker creates a new filesystem checker
func NewFilesystemChecker(runner system.Runner) *FilesystemChecker {
	return &FilesystemChecker{
		runner: runner,
	}
}

// Check runs "fsck -M -a -C0" over devices with the terminal attached for
// the progress bars. fsck checks the devices in parallel.
func (c *FilesystemChecker) Check(devices []string) error {
	if len(devices) == 0 {
		return nil
	}
	args := append([]string{"-M", "-a", "-C0"}, devices...)
	_, err := c.runner.Exec(system.Command{Name: "fsck", Args: args, Passthrough: true})
	if err == nil {
		return nil
	}
	code := system.ExitCode(err)
	if FsckOK(code) {
		return nil
	}
	if code < 0 {
		return fmt.Errorf("failed to run fsck: %w", err)
	}
	return &FsckError{Code: code}
}

// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isFatalFsnotifyError reports whether a watcher error means the watcher
// cannot keep operating. On Linux these are the inotify resource exhaustion
// errors: ENOSPC (fs.inotify.max_user_watches exceeded), EMFILE (per-process
// fd limit) and ENFILE (system-wide fd limit). Everything else is reported
// and the watch loop continues.
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}

package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the soft limit below which parallel extraction
// may run out of descriptors.
const MinFileDescriptors = 256

// CheckFileDescriptors reports the open file limit. A low limit is a
// warning: lowering ingest.workers also avoids it.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 4096' or lower ingest.workers"
		return result
	}
	result.Status = StatusPass
	return result
}

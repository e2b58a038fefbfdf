package coordinator

import (
	"time"

	"github.com/stacklok/menu-importer/internal/status"
)

// isDue reports whether a menu with the given interval should be imported now
func isDue(importStatus *status.ImportStatus, interval time.Duration, now time.Time) bool {
	if importStatus == nil || importStatus.LastImportTime == nil {
		return true
	}
	if importStatus.Phase == status.ImportPhaseFailed {
		return true
	}
	return !now.Before(importStatus.LastImportTime.Add(interval))
}

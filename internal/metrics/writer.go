package metrics

import "gainstaker/logger"

// JournalStats holds counters for one journal flush.
type JournalStats struct {
	RecordsWritten int64
	FilesWritten   int64
	BytesWritten   int64
	Uploads        int64
	ErrorsCount    int64
}

// ReportJournal emits the journal counters and a summary line.
func ReportJournal(log *logger.Log, component string, stats JournalStats) {
	if log == nil {
		log = logger.GetLogger()
	}
	l := log.WithComponent(component)

	avgBytesPerFile := float64(0)
	if stats.FilesWritten > 0 {
		avgBytesPerFile = float64(stats.BytesWritten) / float64(stats.FilesWritten)
	}

	EmitMetric(log, component, "records_written", stats.RecordsWritten, "counter", nil)
	EmitMetric(log, component, "files_written", stats.FilesWritten, "counter", nil)
	EmitMetric(log, component, "bytes_written", stats.BytesWritten, "counter", logger.Fields{"unit": "bytes"})
	EmitMetric(log, component, "uploads", stats.Uploads, "counter", nil)
	EmitMetric(log, component, "errors_count", stats.ErrorsCount, "counter", nil)

	entry := l.WithFields(logger.Fields{
		"records_written":    stats.RecordsWritten,
		"files_written":      stats.FilesWritten,
		"bytes_written":      stats.BytesWritten,
		"uploads":            stats.Uploads,
		"errors_count":       stats.ErrorsCount,
		"avg_bytes_per_file": avgBytesPerFile,
	})
	if stats.ErrorsCount > 0 {
		entry.Warn(component + " metrics")
		return
	}
	entry.Info(component + " metrics")
}

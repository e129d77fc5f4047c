package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// callerHook points the reported caller at the first frame outside logrus
// and the Entry wrappers in this package.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 24)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !skipFrame(frame.Function) {
			entry.Caller = &frame
			return nil
		}
		if !more {
			return nil
		}
	}
}

func skipFrame(fn string) bool {
	if strings.Contains(fn, "sirupsen/logrus") {
		return true
	}
	// wrappers only; tests in this package still report their own frames
	return strings.HasPrefix(fn, "gainstaker/logger.(*Entry)") ||
		strings.HasPrefix(fn, "gainstaker/logger.(*Log)") ||
		strings.HasPrefix(fn, "gainstaker/logger.LogPerformanceEntry")
}

package logger

import (
	"sort"
	"sync"
	"sync/atomic"
)

type componentStat struct {
	warns  int64
	errors int64
}

var components sync.Map // map[string]*componentStat

func stat(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&stat(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&stat(component).errors, 1)
}

// Counts returns the warnings and errors logged so far by component.
func Counts(component string) (warns, errs int64) {
	v, ok := components.Load(component)
	if !ok {
		return 0, 0
	}
	cs := v.(*componentStat)
	return atomic.LoadInt64(&cs.warns), atomic.LoadInt64(&cs.errors)
}

// Report logs a one line summary of warnings and errors per component. The
// CLI calls it once before exiting.
func Report(log *Log) {
	var names []string
	components.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)

	summary := Fields{}
	for _, name := range names {
		w, e := Counts(name)
		summary[name] = map[string]int64{"warns": w, "errors": e}
	}
	log.WithComponent("report").WithFields(Fields{"components": summary}).Debug("run report")
}

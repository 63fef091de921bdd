package logger

import "sync"

// Component names used with Get.
const (
	ComponentRunner = "runner"
	ComponentFilter = "filter"
	ComponentSSE    = "sse"
)

var components = struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Register pins the logger used for a component and returns a function
// restoring the previous one. Unpinned components follow the global
// logger.
func Register(component string, l *Logger) (restore func()) {
	components.mu.Lock()
	defer components.mu.Unlock()
	prev, had := components.loggers[component]
	components.loggers[component] = l
	return func() {
		components.mu.Lock()
		defer components.mu.Unlock()
		if had {
			components.loggers[component] = prev
		} else {
			delete(components.loggers, component)
		}
	}
}

// Get returns the logger pinned for component, or the current global
// logger tagged with the component name.
func Get(component string) *Logger {
	components.mu.RLock()
	l, ok := components.loggers[component]
	components.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(component)
}

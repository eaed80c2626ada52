package core

import (
	"path/filepath"
	"runtime"
	"time"
)

// Event represents a single log event with all its metadata.
//
// An Event is constructed once at the call site and never mutated
// afterwards; sinks that deliver asynchronously hold a reference to the
// same Event until their batch is flushed, so treating it as immutable
// is what makes the fan-out safe without copies.
type Event struct {
	Time     time.Time
	Level    Level
	Category string
	Message  string

	// Frame is an optional monotonic sequence counter supplied by the
	// application (e.g. a simulation tick). Zero means unset.
	Frame uint64

	// ThreadID and ThreadName identify the origin goroutine or thread
	// when the application chooses to record them.
	ThreadID   int64
	ThreadName string

	Stack   string
	Caller  CallerInfo
	Context []Field
}

// CallerInfo contains information about the log call site
type CallerInfo struct {
	File      string
	ShortFile string
	Line      int
	Function  string
	Defined   bool
}

// GetCaller retrieves caller information
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallerInfo{}
	}

	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}

	return CallerInfo{
		File:      file,
		ShortFile: filepath.Base(file),
		Line:      line,
		Function:  funcName,
		Defined:   true,
	}
}

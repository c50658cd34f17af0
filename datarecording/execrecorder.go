package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of the program execution that produced a
// recording.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecInfoTable is the name of the table that holds ExecInfo rows.
const ExecInfoTable = "exec_info"

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// Records program execution
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{recorder: recorder}
	recorder.CreateTable(ExecInfoTable, ExecInfo{})

	return e
}

// Start remembers the start time, the command line and the working
// directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(execTimeFormat)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "unknown"
	}

	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the remembered entries along with the exit time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTable, entry)
	}

	e.recorder.InsertData(ExecInfoTable,
		ExecInfo{"End Time", time.Now().Format(execTimeFormat)})

	e.entries = nil
}

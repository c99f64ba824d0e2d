package runtime

import (
	"fmt"
	"strings"
)

// RuntimeError is returned by VM.Execute when execution aborts. It carries the
// formatted message and the frame-by-frame traceback collected at the
// point of failure, matching the "Runtime error: <msg>" / "\tat fn():line"
// user-visible format.
type RuntimeError struct {
	Message   string
	Traceback []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Runtime error: %s\n", e.Message)
	for _, frame := range e.Traceback {
		fmt.Fprintf(&b, "\tat %s\n", frame)
	}
	return b.String()
}

func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	err := &RuntimeError{Message: msg}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.chunk().GetLine(f.IP - 1)
		name := "script"
		if f.Closure.Fn.Name != nil {
			name = f.Closure.Fn.Name.Chars
		}
		err.Traceback = append(err.Traceback, fmt.Sprintf("%s():%d", name, line))
	}
	vm.abort = true
	return err
}

package exception

import (
	"fmt"
	"runtime/debug"

	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/monitoring"
)

// SafeGo runs fn in a goroutine. A panic is logged and counted instead of
// crashing the node.
func SafeGo(name string, fn func()) {
	go func() {
		defer recoverPanic(name, nil)
		fn()
	}()
}

// SafeCall runs fn and turns a panic into an error, so one bad item does not
// stop a long-running consumer.
func SafeCall(name string, fn func() error) (err error) {
	defer recoverPanic(name, &err)
	return fn()
}

func recoverPanic(name string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	monitoring.IncreasePanicCount()
	logx.Error("PANIC", fmt.Sprintf("Panic in %s: %v\n%s", name, r, debug.Stack()))
	if errp != nil {
		*errp = fmt.Errorf("panic in %s: %v", name, r)
	}
}

package objectstore

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// recoverToError turns a panicking goroutine into a Fatal error rather
// than crashing the process, the same recover-log-translate idiom the
// teacher's HTTP recovery middleware uses, repurposed here for the
// balancer's flush fan-out goroutines (spec.md §5's additional note).
func recoverToError(result *error) {
	if r := recover(); r != nil {
		logrus.WithField("stack", string(debug.Stack())).Errorf("objectstore: recovered panic: %v", r)
		*result = errFatal(fmt.Sprintf("panic: %v", r), nil)
	}
}

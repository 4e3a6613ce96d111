package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with its stack. It must be
// called directly in a defer statement. The panic is not re-raised.
func RecoverPanic(log logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		log.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}

// MustRecover converts a recovered value into an error, nil when r is nil
//
//	defer func() {
//		if r := recover(); r != nil {
//			err = observability.MustRecover(r)
//		}
//	}()
func MustRecover(r any) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}

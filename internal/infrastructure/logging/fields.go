package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Field constructors for the keys every engine logs, so a transaction or
// batch can be followed across components by one key.

func TxID(id fmt.Stringer) zap.Field    { return zap.Stringer("tx_id", id) }
func BatchID(id fmt.Stringer) zap.Field { return zap.Stringer("batch_id", id) }
func Step(n int) zap.Field              { return zap.Int("step", n) }
func FailedStep(n int) zap.Field        { return zap.Int("failed_step", n) }
func Path(p string) zap.Field           { return zap.String("path", p) }

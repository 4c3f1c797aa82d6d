package operations

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

var ErrNotSerializable = errors.New("data cannot be safely written to disk without data lost, " +
	"avoid type that can't be serialized")

// ExecuteOperation executes an operation with the given dependencies and input, records a Report
// with the Bundle's Reporter and returns it. The handler runs exactly once. A failed execution
// returns both the report and the handler error.
//
// The input and output must be JSON serializable so that the report can be written to disk.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	output, err := operation.execute(b, deps, input)
	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := NewReport(operation.def, input, output, err)
	if rerr := b.reporter.AddReport(genericReport(report)); rerr != nil {
		return report, errors.Join(err, rerr)
	}

	if err != nil {
		return report, err
	}

	return report, nil
}

// IsSerializable reports whether v can be marshalled to JSON.
func IsSerializable(lggr logger.Logger, v any) bool {
	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value is not JSON serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	return true
}

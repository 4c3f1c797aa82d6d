package operations

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

// Bundle contains the dependencies passed to every OperationHandler: the Logger, the Reporter
// and the context. Use NewBundle to create a new Bundle.
type Bundle struct {
	Logger     logger.Logger
	GetContext func() context.Context
	reporter   Reporter
}

// NewBundle creates and returns a new Bundle.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter) Bundle {
	return Bundle{
		Logger:     lggr,
		GetContext: getContext,
		reporter:   reporter,
	}
}

// Reporter returns the Reporter that stores the reports of executed operations.
func (b Bundle) Reporter() Reporter {
	return b.reporter
}

// OperationHandler is the function signature of an operation handler.
type OperationHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Definition is the metadata of an operation.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// Operation is a unit of deployment work with typed input, output and dependencies.
// Each operation should only perform max 1 side effect (e.g. send a transaction).
// Use NewOperation to create a new operation.
type Operation[IN, OUT, DEP any] struct {
	def     Definition
	handler OperationHandler[IN, OUT, DEP]
}

// ID returns the operation ID.
func (o *Operation[IN, OUT, DEP]) ID() string {
	return o.def.ID
}

// Version returns the operation semver version in string.
func (o *Operation[IN, OUT, DEP]) Version() string {
	return o.def.Version.String()
}

// Description returns the operation description.
func (o *Operation[IN, OUT, DEP]) Description() string {
	return o.def.Description
}

// Def returns the operation definition.
func (o *Operation[IN, OUT, DEP]) Def() Definition {
	return o.def
}

func (o *Operation[IN, OUT, DEP]) execute(b Bundle, deps DEP, input IN) (output OUT, err error) {
	b.Logger.Infow("Executing operation",
		"id", o.def.ID, "version", o.def.Version, "description", o.def.Description)

	return o.handler(b, deps, input)
}

// NewOperation creates a new operation.
// Version can be created using semver.MustParse("1.0.0") or semver.NewVersion("1.0.0").
func NewOperation[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler OperationHandler[IN, OUT, DEP],
) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{
		def: Definition{
			ID:          id,
			Version:     version,
			Description: description,
		},
		handler: handler,
	}
}

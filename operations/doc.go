/*
Package operations runs versioned deployment operations and records what they did.

An Operation pairs a Definition (ID, semver version, description) with a handler that performs
at most one side effect, such as sending a contract creation transaction. ExecuteOperation runs the
handler and produces a Report holding the input, the output or error, and a time sortable ID.
Reports are kept by a Reporter and can be written to disk as JSON.

# Basic Usage

	op := operations.NewOperation(
		"deploy-contract", semver.MustParse("1.0.0"), "Deploys a contract", handler,
	)

	bundle := operations.NewBundle(ctx, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(bundle, op, deps, input)
*/
package operations

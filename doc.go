// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package schemaloop turns free-form language model output into typed,
validated Go values.

A Runner drives the extraction loop: it sends the conversation and a
schema descriptor to the provider, pulls the structured candidate out
of the response according to the active mode, validates it against the
contract, and on failure appends a correction turn and tries again
within the attempt budget. Every attempt is recorded; cumulative token
usage survives both success and failure.

	type Person struct {
	    Name string `json:"name" jsonschema:"required"`
	    Age  int    `json:"age" jsonschema:"required,minimum=0"`
	}

	runner, err := schemaloop.New[Person](client, "person",
	    schemaloop.WithModel("gpt-4o"),
	    schemaloop.WithMode(types.ModeToolCall),
	    schemaloop.WithBudget(retry.Fixed(3)),
	)
	result, err := runner.Run(ctx, []types.Message{
	    types.NewUserMessage("Jason is 25 years old."),
	})

Streaming callers use StreamFields for one growing object with partial
snapshots, or StreamItems for a sequence of complete validated items.
RunBatch fans independent extractions out over a bounded worker set.
*/
package schemaloop

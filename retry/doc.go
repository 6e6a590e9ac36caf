// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package retry defines the attempt budget consulted by the reask loop.

A Budget answers one question after every failed validation: may
another attempt run? Fixed gives a plain attempt-count ceiling with no
delay. Backoff adds an exponential, jittered wait between attempts,
cancellable through the caller's context so an outer timeout can abort
a stuck sequence.

The loop never mutates a Budget; policy implementations may carry
their own internal state.
*/
package retry

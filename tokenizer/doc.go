// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package tokenizer counts tokens for usage accounting.

Providers usually report token usage on every response; when one does
not, the reask loop falls back to a Counter to keep cumulative usage
accurate. Tiktoken gives exact counts for models with a known
encoding, Estimator gives a character-ratio approximation for
everything else.
*/
package tokenizer

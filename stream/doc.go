// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package stream reconstructs structured values from incremental response
chunks.

Two reconstruction variants are provided. Fields consumes a stream that
carries one growing object and emits progressively more complete partial
snapshots, with a single strict validation at stream end. Items consumes
a stream that carries a sequence of independent objects and emits each
one as soon as its closing boundary arrives, strictly validated at
emission time.

Partial snapshots use a relaxed completion parse: any field whose value
is textually incomplete (an unterminated string, a number that may still
grow, an unclosed container) is treated as not yet known rather than as
an error. Snapshots are monotonic in information: a field present in one
snapshot never reverts to unset in a later one, though its value may
still change until the stream ends.

Both variants honor context cancellation. When the consumer's context is
canceled, no further chunks are pulled from the source.
*/
package stream

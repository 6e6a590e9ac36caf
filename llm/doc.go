// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package llm defines the narrow interface between the extraction loop and
the provider-call collaborator.

The library does not construct HTTP clients and knows nothing about
vendor wire formats. The collaborator is responsible for embedding the
schema descriptor into the request in whatever vendor-specific way the
active mode implies (tool definition, response_format field, prompt
text), and for normalizing the vendor response into [Response] or a
stream of [Chunk].
*/
package llm

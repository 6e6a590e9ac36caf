// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package extract locates the raw structured candidate inside a provider
response, before validation.

Extraction is dispatched on the mode family: tool-call modes read the
arguments payload of matching tool calls, JSON modes take the whole
text payload, and markdown mode scans for a fenced ```json block or
the first balanced JSON span. Failure to find any payload is retryable
(the reask loop asks the model to return valid JSON); a provider-signaled
truncation is terminal, because retrying without raising the limit
reproduces the same truncation.
*/
package extract

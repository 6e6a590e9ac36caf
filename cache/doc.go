// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package cache stores validated extraction results so identical calls
skip the provider entirely.

Keys cover everything that shapes the output: model, mode, schema
descriptor, and the full conversation. Two tiers are supported, an
in-process LRU and an optional shared Redis tier; the local tier is
refilled on a Redis hit.
*/
package cache

// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

// Package metrics provides internal Prometheus metrics collection.
// This package is internal and should not be imported by external
// projects.
package metrics

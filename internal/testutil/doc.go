// Package testutil contains fluent builders used across tests to reduce
// boilerplate when constructing registries and transcript messages. It is not
// intended for production usage.
package testutil

// Package mcp contains the protocol data types exchanged between tool
// handlers and the protocol host. It mirrors the wire representation
// specified by the Model Context Protocol while keeping the surface
// Go-friendly (exported structs with json tags, string constants for
// enumerations, small helper functions).
//
// The package is intentionally free of transport logic. Hosts (the official
// go-sdk server, a custom JSON-RPC engine, tests) marshal these types as they
// see fit; see package sdkbridge for the go-sdk conversion.
//
// # Envelopes
//
// CallToolResult is the unit returned to the host for every tool invocation:
// an ordered list of content blocks, an optional structured mirror of the same
// data and an error flag. Error results never carry a structured mirror.
//
//	res := mcp.TextResult("hello")
//	res = mcp.ErrorTextResult(`{"error":"server_error","message":"boom"}`)
//
// # Elicitation
//
// ElicitRequest and ElicitResult describe the mid-invocation round trip that
// asks the caller for missing input. The requested schema is a flat object of
// primitive properties (string, number, integer, boolean) with optional enum
// and length/numeric bounds.
//
// # Logging Levels
//
// LoggingLevel values mirror syslog severities defined by the protocol. Use
// IsValidLoggingLevel to validate user-provided values.
package mcp

// Package elicitation asks the caller of a tool for missing input in the
// middle of an invocation.
//
// A round trip moves through a small state machine:
//
//	Idle -> Probing -> NotSupported
//	                -> Requesting -> TimedOut
//	                              -> Responded -> Validated | Rejected
//
// Probing is done by HostFrom, which accepts anything that can carry the
// capability: a Host, a Provider, a go-sdk *ServerSession or a go-sdk
// *CallToolRequest. Requesting runs under the timeout guard. A response with
// no action counts as cancel. Accepted content is validated against the
// requested schema before it is handed back, so only OutcomeValidated
// yields data; every other outcome means "no value obtained" and the tool
// should carry on with what it has.
//
// # Schemas
//
// Requested schemas are flat objects of string, number, integer and boolean
// properties with optional enum, length and numeric bounds. Build them with
// NewBuilder or derive them from a struct with SchemaFor:
//
//	type Input struct {
//	    IndexName string `json:"indexName" jsonschema:"minLength=2,description=Index to search"`
//	    Top       *int   `json:"top,omitempty" jsonschema:"minimum=1,maximum=50"`
//	}
//
//	req, _ := elicitation.RequestFor[Input]("Which index should be searched?")
//	res := elicitation.Elicit(ctx, server, req)
//	if in, err := elicitation.Decode[Input](res); err == nil {
//	    params = elicitation.Merge(params, res.Content)
//	    _ = in
//	}
//
// Pointer fields are optional; value fields are required unless tagged
// omitempty. Nested objects, arrays and composition are rejected.
//
// # Merging
//
// NeedsElicitation treats absent, nil and "" parameters as missing. Merge
// combines supplied and elicited parameters; a supplied value that is
// present always wins.
package elicitation

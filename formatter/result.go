package formatter

import (
	"context"
	"encoding/json"

	"github.com/ggoodman/mcp-toolguard/mcp"
	"github.com/ggoodman/mcp-toolguard/pagination"
	"github.com/ggoodman/mcp-toolguard/toolerr"
)

// ErrorResult renders an error envelope as a text result with the error flag
// set. Error results never carry a structured mirror.
func ErrorResult(env toolerr.Envelope) *mcp.CallToolResult {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		// Envelope only holds strings and ints.
		return mcp.ErrorTextResult(`{"error":"unknown_error","message":"failed to encode error"}`)
	}
	return mcp.ErrorTextResult(string(b))
}

// PaginatedResult renders one page of items. When the rendered page exceeds
// the size budget the page size is halved until it fits (or holds a single
// item), so the returned cursor always resumes right after the last item the
// caller actually saw. An invalid cursor yields an invalid_request error
// result.
func PaginatedResult[T any](ctx context.Context, items []T, pageSize int, cursor string, opts Options) *mcp.CallToolResult {
	opts = opts.withDefaults()
	for {
		page, err := pagination.Paginate(items, pageSize, cursor)
		if err != nil {
			return ErrorResult(toolerr.Normalize(&toolerr.InvalidParamsError{Field: "cursor", Reason: err.Error()}, ""))
		}
		v, err := normalize(page)
		if err != nil {
			return ErrorResult(toolerr.Normalize(err, ""))
		}
		if len(page.Items) <= 1 || size(v) <= opts.MaxSize {
			opts.Mode = ModeFull
			return formatFull(ctx, v, opts)
		}
		pageSize = len(page.Items) / 2
	}
}

func render(v any, maxSize int) *mcp.CallToolResult {
	text, err := marshal(v)
	if err != nil {
		return ErrorResult(toolerr.Normalize(err, ""))
	}
	return renderText(v, text, maxSize)
}

// renderText wraps text in a result and attaches the structured mirror when
// v is an object and text plus mirror still fit in maxSize.
func renderText(v any, text string, maxSize int) *mcp.CallToolResult {
	res := mcp.TextResult(text)
	obj, ok := v.(map[string]any)
	if !ok {
		return res
	}
	compact, err := json.Marshal(obj)
	if err != nil || len(text)+len(compact) > maxSize {
		return res
	}
	res.StructuredContent = obj
	return res
}

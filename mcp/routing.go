package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// mcp-go answers tools/call for an unregistered name with a JSON-RPC error
// before any handler runs. Such calls are rewritten onto this hidden tool so
// the caller gets an "Unknown tool" tool result instead.
const (
	unknownToolName = "_unknown_tool"
	unknownToolArg  = "name"
)

// maxMessageBytes bounds a single SSE message body.
const maxMessageBytes = 1 << 20

func unknownTool() mcpgo.Tool {
	return mcpgo.NewTool(unknownToolName,
		mcpgo.WithDescription("Reports calls to tools this server does not have."),
		mcpgo.WithString(unknownToolArg),
	)
}

func (h *Handler) unknownToolHandler() mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		name := req.GetString(unknownToolArg, unknownToolName)
		if name == ToolName {
			name = unknownToolName
		}
		resp := h.Call(ctx, name, nil)
		return mcpgo.NewToolResultError(resp.Text), nil
	}
}

// hideUnknownTool keeps the fallback out of tools/list.
func hideUnknownTool(_ context.Context, tools []mcpgo.Tool) []mcpgo.Tool {
	out := tools[:0:0]
	for _, t := range tools {
		if t.Name != unknownToolName {
			out = append(out, t)
		}
	}
	return out
}

// routeUnknownTool rewrites a single tools/call message naming a tool outside
// known onto the fallback tool. Anything else is returned untouched.
func routeUnknownTool(raw []byte, known map[string]bool) []byte {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return raw
	}
	var method string
	if err := json.Unmarshal(msg["method"], &method); err != nil || method != string(mcpgo.MethodToolsCall) {
		return raw
	}
	var params map[string]json.RawMessage
	if err := json.Unmarshal(msg["params"], &params); err != nil {
		return raw
	}
	var name string
	if err := json.Unmarshal(params["name"], &name); err != nil || known[name] {
		return raw
	}

	params["name"], _ = json.Marshal(unknownToolName)
	params["arguments"], _ = json.Marshal(map[string]string{unknownToolArg: name})
	rewritten, err := json.Marshal(params)
	if err != nil {
		return raw
	}
	msg["params"] = rewritten
	out, err := json.Marshal(msg)
	if err != nil {
		return raw
	}
	return out
}

// routingReader applies route to every newline delimited message of the stdio
// stream.
type routingReader struct {
	src   *bufio.Reader
	route func([]byte) []byte
	buf   []byte
	err   error
}

func newRoutingReader(r io.Reader, route func([]byte) []byte) *routingReader {
	return &routingReader{src: bufio.NewReader(r), route: route}
}

func (r *routingReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		line, err := r.src.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := bytes.TrimRight(line, "\r\n")
			r.buf = append(r.route(trimmed), '\n')
		}
		r.err = err
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// routingHandler applies route to POSTed SSE messages before mcp-go sees them.
func routingHandler(next http.Handler, route func([]byte) []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
		_ = r.Body.Close()
		if err != nil {
			http.Error(w, "read message: "+err.Error(), http.StatusBadRequest)
			return
		}
		body = route(body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		next.ServeHTTP(w, r)
	})
}

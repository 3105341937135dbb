package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteUnknownTool(t *testing.T) {
	known := map[string]bool{ToolName: true}
	tests := []struct {
		name string
		in   string
		same bool
	}{
		{name: "known tool", in: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_tariff_reaction_news","arguments":{"country":"Canada"}}}`, same: true},
		{name: "other method", in: `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, same: true},
		{name: "notification", in: `{"jsonrpc":"2.0","method":"notifications/initialized"}`, same: true},
		{name: "invalid json", in: `{"jsonrpc":`, same: true},
		{name: "name not a string", in: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":7}}`, same: true},
		{name: "unknown tool", in: `{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"get_weather","arguments":{"city":"Oslo"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := routeUnknownTool([]byte(tt.in), known)
			if tt.same {
				assert.Equal(t, tt.in, string(out))
				return
			}
			var msg struct {
				ID     json.RawMessage `json:"id"`
				Method string          `json:"method"`
				Params struct {
					Name      string            `json:"name"`
					Arguments map[string]string `json:"arguments"`
				} `json:"params"`
			}
			require.NoError(t, json.Unmarshal(out, &msg))
			assert.JSONEq(t, `"abc"`, string(msg.ID))
			assert.Equal(t, "tools/call", msg.Method)
			assert.Equal(t, unknownToolName, msg.Params.Name)
			assert.Equal(t, map[string]string{unknownToolArg: "get_weather"}, msg.Params.Arguments)
		})
	}
}

func TestRoutingReaderRewritesEachLine(t *testing.T) {
	in := "one\r\ntwo\nthree"
	r := newRoutingReader(strings.NewReader(in), func(b []byte) []byte {
		return []byte(strings.ToUpper(string(b)))
	})
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ONE\nTWO\nTHREE\n", string(out))
}

func TestRoutingHandlerRewritesPostBodies(t *testing.T) {
	var got []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, int64(len(body)), r.ContentLength)
		got = append(got, r.Method+" "+string(body))
	})
	h := routingHandler(next, func(b []byte) []byte { return append([]byte("routed:"), b...) })

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mcp/message", strings.NewReader("x")))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mcp/sse", nil))
	assert.Equal(t, []string{"POST routed:x", "GET "}, got)
}

func TestHideUnknownTool(t *testing.T) {
	tools := hideUnknownTool(context.Background(), []mcpgo.Tool{Tool(), unknownTool()})
	require.Len(t, tools, 1)
	assert.Equal(t, ToolName, tools[0].Name)
}

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/tariffnews/internal/runtime"
	tariffnews "github.com/mohammad-safakhou/tariffnews/tools/tariff_news"
)

const (
	ToolName        = "get_tariff_reaction_news"
	ToolDescription = "Searches DuckDuckGo for recent news articles (past week) about international reactions to the April 2025 US tariffs. Optionally filters by country and accepts additional keywords."
)

// State is a step of a single tool call.
type State string

const (
	StateReceived   State = "received"
	StateValidating State = "validating"
	StateQuerying   State = "querying"
	StateSearching  State = "searching"
	StateResponding State = "responding"
	StateResponded  State = "responded"
	StateFailed     State = "failed"
)

// Response is what goes back over the protocol. IsError marks a tool level
// failure; the text is shown to the caller either way.
type Response struct {
	Text    string
	IsError bool
}

// Searcher runs a built query. *tariffnews.Adapter satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) tariffnews.Outcome
}

// Handler runs get_tariff_reaction_news calls end to end.
type Handler struct {
	search  Searcher
	logger  *zap.Logger
	metrics *runtime.Metrics
}

// NewHandler wires the search step. logger and metrics may be nil.
func NewHandler(search Searcher, logger *zap.Logger, metrics *runtime.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{search: search, logger: logger, metrics: metrics}
}

type call struct {
	log   *zap.Logger
	state State
}

func (c *call) enter(s State) {
	c.log.Debug("tool call state", zap.String("from", string(c.state)), zap.String("to", string(s)))
	c.state = s
}

// Call runs one tool invocation. It never returns a Go error: every failure is
// a Response with IsError set.
func (h *Handler) Call(ctx context.Context, name string, args map[string]any) Response {
	fields := []zap.Field{zap.String("request_id", uuid.NewString()), zap.String("tool", name)}
	if sub, ok := runtime.SubjectFromContext(ctx); ok {
		fields = append(fields, zap.String("subject", sub))
	}
	c := &call{log: h.logger.With(fields...), state: StateReceived}
	ctx, span := runtime.StartSpan(ctx, "tariffnews.tool_call", attribute.String("tool", name))
	defer span.End()

	if name != ToolName {
		return h.fail(c, "unknown_tool", fmt.Sprintf("Unknown tool: %s", name))
	}

	c.enter(StateValidating)
	in, err := tariffnews.ParseInput(args)
	if err != nil {
		var verr *tariffnews.ValidationError
		if !errors.As(err, &verr) {
			runtime.RecordError(span, err)
		}
		return h.fail(c, "invalid_input", "Invalid input arguments: "+err.Error())
	}

	c.enter(StateQuerying)
	query := tariffnews.BuildQuery(in)
	c.log.Info("searching tariff news", zap.String("query", query))

	c.enter(StateSearching)
	outcome := h.search.Search(ctx, query)
	text, err := marshalIndent(outcome.Output())
	if err != nil {
		runtime.RecordError(span, err)
		return h.fail(c, "internal", "Error serializing results: "+err.Error())
	}
	if outcome.Kind != tariffnews.OutcomePopulated {
		return h.fail(c, outcome.Kind.String(), text)
	}

	c.enter(StateResponding)
	c.enter(StateResponded)
	c.log.Info("tool call responded", zap.Int("results", len(outcome.Items)))
	h.metrics.ObserveToolCall(string(StateResponded))
	return Response{Text: text}
}

func (h *Handler) fail(c *call, outcome, text string) Response {
	c.enter(StateFailed)
	c.log.Warn("tool call failed", zap.String("outcome", outcome), zap.String("message", text))
	h.metrics.ObserveToolCall(outcome)
	return Response{Text: text, IsError: true}
}

// ToolHandler adapts Call to mcp-go. Failures become tool error results, never
// transport errors.
func (h *Handler) ToolHandler() mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		resp := h.Call(ctx, req.Params.Name, req.GetArguments())
		if resp.IsError {
			return mcpgo.NewToolResultError(resp.Text), nil
		}
		return mcpgo.NewToolResultText(resp.Text), nil
	}
}

// marshalIndent keeps "&" and angle brackets literal in titles and snippets.
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

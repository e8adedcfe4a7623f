// Package dispatcher implements the Tool Dispatcher of spec.md §4.12: it
// decodes JSON-RPC requests arriving over an internal/transport.Conn,
// routes the handful of methods an MCP client actually sends, validates
// tool arguments, and serializes results as MCP text-content blocks.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/ctxmcp/ctxmcp/internal/transport"
)

// ServerName/ServerVersion identify this process during the initialize
// handshake.
const (
	ServerName    = "ctxmcp"
	ServerVersion = "1.0.0"
)

// SearchContextFunc runs the search_context tool.
type SearchContextFunc func(ctx context.Context, projectRootPath, query string) (string, error)

// EnhancePromptFunc runs the enhance_prompt tool.
type EnhancePromptFunc func(ctx context.Context, projectRootPath, prompt, conversationHistory string) (string, error)

// Dispatcher routes decoded JSON-RPC requests to tool handlers. Both
// handler fields are supplied by the entrypoint that wires the indexer,
// retrieval client, enhancer, and interaction server together;
// EnhancePrompt may be nil when the operator disables it, in which case
// tools/list omits enhance_prompt and tools/call rejects it.
type Dispatcher struct {
	SearchContext SearchContextFunc
	EnhancePrompt EnhancePromptFunc
	Log           zerolog.Logger
}

// Serve reads requests from conn until it errors (typically io.EOF on
// stdin close) and writes one response per non-notification request.
func (d *Dispatcher) Serve(ctx context.Context, conn *transport.Conn) error {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("dispatcher: read message: %w", err)
		}

		resp := d.handleRaw(ctx, raw)
		if resp == nil {
			continue
		}
		wire, err := transport.Encode(resp)
		if err != nil {
			d.Log.Error().Err(err).Msg("encode response failed")
			continue
		}
		if err := conn.WriteMessage(wire); err != nil {
			return fmt.Errorf("dispatcher: write message: %w", err)
		}
	}
}

func (d *Dispatcher) handleRaw(ctx context.Context, raw []byte) *transport.Response {
	req, err := transport.DecodeRequest(raw)
	if err != nil {
		return transport.NewErrorResponse(nil, transport.CodeParseError, "parse error", err.Error())
	}

	if req.IsNotification() {
		d.handleNotification(req.Method)
		return nil
	}

	return d.handleRequest(ctx, req)
}

func (d *Dispatcher) handleNotification(method string) {
	switch method {
	case "initialized", "notifications/initialized":
		// no side effects
	default:
		d.Log.Debug().Str("method", method).Msg("ignoring unknown notification")
	}
}

func (d *Dispatcher) handleRequest(ctx context.Context, req *transport.Request) *transport.Response {
	switch req.Method {
	case "initialize":
		return transport.NewResultResponse(req.ID, initializeResult())
	case "ping":
		return transport.NewResultResponse(req.ID, map[string]interface{}{})
	case "tools/list":
		return transport.NewResultResponse(req.ID, d.toolsListResult())
	case "tools/call":
		return d.handleToolsCall(ctx, req)
	default:
		return transport.NewErrorResponse(req.ID, transport.CodeMethodNotFound, "method not found: "+req.Method, nil)
	}
}

func initializeResult() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
}

func (d *Dispatcher) toolsListResult() map[string]interface{} {
	tools := []mcp.Tool{searchContextTool()}
	if d.EnhancePrompt != nil {
		tools = append(tools, enhancePromptTool())
	}
	return map[string]interface{}{"tools": tools}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req *transport.Request) *transport.Response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return transport.NewErrorResponse(req.ID, transport.CodeInvalidParams, "invalid params", err.Error())
	}

	var args map[string]interface{}
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return transport.NewErrorResponse(req.ID, transport.CodeInvalidParams, "invalid arguments", err.Error())
		}
	}

	name := params.Name
	if name == codebaseRetrievalAlias {
		name = "search_context"
	}

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "search_context":
		result, err = d.callSearchContext(ctx, args)
	case "enhance_prompt":
		result, err = d.callEnhancePrompt(ctx, args)
	default:
		return transport.NewErrorResponse(req.ID, transport.CodeMethodNotFound, "unknown tool: "+name, nil)
	}

	if err != nil {
		var verr *validationError
		if errors.As(err, &verr) {
			return transport.NewErrorResponse(req.ID, transport.CodeInvalidParams, verr.Error(), nil)
		}
		return transport.NewErrorResponse(req.ID, transport.CodeInternalError, err.Error(), nil)
	}

	return transport.NewResultResponse(req.ID, result)
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func invalidArg(msg string) error { return &validationError{msg: msg} }

func (d *Dispatcher) callSearchContext(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	projectRootPath, ok := args["project_root_path"].(string)
	if !ok || projectRootPath == "" {
		return nil, invalidArg("project_root_path is required")
	}
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, invalidArg("query is required")
	}

	text, err := d.SearchContext(ctx, projectRootPath, query)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(text), nil
}

func (d *Dispatcher) callEnhancePrompt(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	if d.EnhancePrompt == nil {
		return nil, errors.New("enhance_prompt is disabled")
	}

	prompt, ok := args["prompt"].(string)
	if !ok || prompt == "" {
		return nil, invalidArg("prompt is required")
	}
	history, ok := args["conversation_history"].(string)
	if !ok {
		return nil, invalidArg("conversation_history is required")
	}
	projectRootPath, _ := args["project_root_path"].(string)

	text, err := d.EnhancePrompt(ctx, projectRootPath, prompt, history)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(text), nil
}

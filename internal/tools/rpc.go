package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// JSON-RPC 2.0 server speaking the MCP stdio protocol: one JSON message per
// line on stdin, one response per line on stdout. Logs go to stderr so the
// transport stays clean.

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	rpcCodeMethodNotFound = -32601
	rpcCodeInvalidParams  = -32602
)

// RPCServer binds a tool registry to a single authenticated user. The user
// comes from server-side configuration, never from the wire, so a chat
// client cannot reach another user's tasks.
type RPCServer struct {
	registry *Registry
	userID   string
}

func NewRPCServer(registry *Registry, userID string) *RPCServer {
	return &RPCServer{registry: registry, userID: userID}
}

// Serve processes requests from r until EOF.
func (s *RPCServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(w)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			log.Printf("[RPC] failed to parse request: %v", err)
			continue
		}

		resp := s.handle(ctx, req)

		out, err := json.Marshal(resp)
		if err != nil {
			log.Printf("[RPC] failed to marshal response: %v", err)
			continue
		}
		writer.Write(out)
		writer.WriteString("\n")
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *RPCServer) handle(ctx context.Context, req rpcRequest) rpcResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{"tools": Definitions()},
		}
	case "tools/call":
		return s.handleToolCall(ctx, req)
	default:
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &rpcError{
				Code:    rpcCodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

func (s *RPCServer) handleInitialize(req rpcRequest) rpcResponse {
	return rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "taskhive-tools",
				"version": "1.0.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]bool{"enabled": true},
			},
		},
	}
}

func (s *RPCServer) handleToolCall(ctx context.Context, req rpcRequest) rpcResponse {
	name, ok := req.Params["name"].(string)
	if !ok {
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &rpcError{
				Code:    rpcCodeInvalidParams,
				Message: "Invalid params: missing tool name",
			},
		}
	}
	arguments, _ := req.Params["arguments"].(map[string]any)

	result := s.registry.Execute(ctx, s.userID, name, arguments)

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprintf("%v", result))
	}
	return rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": string(text)},
			},
		},
	}
}

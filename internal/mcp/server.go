package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pocketomega/axon/internal/resource"
	"github.com/pocketomega/axon/internal/tool"
)

// toolsLister is the subset of tool.Registry the Dispatcher needs, kept
// narrow so tests can substitute a fake registry without building a real one.
type toolsLister interface {
	List() []tool.Tool
	Get(name string) (tool.Tool, bool)
}

// Dispatcher implements the server side of MCP, per spec.md §4.6: this
// process exposes its own tool registry and resource manager to remote MCP
// clients over the same JSON-RPC envelope the client side speaks, so the
// agent can run both as an MCP client (calling other servers' tools) and an
// MCP server (offering its own).
type Dispatcher struct {
	tools     toolsLister
	resources *resource.Manager
	name      string
	version   string
}

// NewDispatcher builds a Dispatcher serving tools out of reg and resources
// out of resources (either may be nil to omit that capability).
func NewDispatcher(name, version string, reg toolsLister, resources *resource.Manager) *Dispatcher {
	return &Dispatcher{tools: reg, resources: resources, name: name, version: version}
}

// Handle dispatches one JSON-RPC method call and returns its raw JSON
// result, or an *rpcError describing why it failed. Notifications (method
// names with no caller-visible response, like "notifications/initialized")
// are accepted and return a nil result.
func (d *Dispatcher) Handle(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *rpcError) {
	switch method {
	case "initialize":
		return d.handleInitialize()
	case "notifications/initialized":
		return nil, nil
	case "tools/list":
		return d.handleToolsList()
	case "tools/call":
		return d.handleToolsCall(ctx, params)
	case "resources/list":
		return d.handleResourcesList()
	case "resources/read":
		return d.handleResourcesRead(ctx, params)
	default:
		return nil, &rpcError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", method)}
	}
}

func (d *Dispatcher) handleInitialize() (json.RawMessage, *rpcError) {
	result := rpcInitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      map[string]any{"name": d.name, "version": d.version},
		Capabilities: map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
	}
	return marshalOrInternalError(result)
}

func (d *Dispatcher) handleToolsList() (json.RawMessage, *rpcError) {
	if d.tools == nil {
		return marshalOrInternalError(rpcListToolsResult{Tools: []rpcToolDescriptor{}})
	}
	list := d.tools.List()
	descs := make([]rpcToolDescriptor, 0, len(list))
	for _, t := range list {
		descs = append(descs, rpcToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return marshalOrInternalError(rpcListToolsResult{Tools: descs})
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p callToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &rpcError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid tools/call params: %v", err)}
	}
	if d.tools == nil {
		return nil, &rpcError{Code: CodeToolNotFound, Message: "no tools registered"}
	}
	t, ok := d.tools.Get(p.Name)
	if !ok {
		return nil, &rpcError{Code: CodeToolNotFound, Message: fmt.Sprintf("tool %q not found", p.Name)}
	}

	result, err := t.Execute(ctx, p.Arguments)
	if err != nil {
		log.Printf("[mcp.Dispatcher] tool %q execution error: %v", p.Name, err)
		return marshalOrInternalError(rpcCallToolResult{
			Content: []rpcContentBlock{{Type: string(ContentText), Text: err.Error()}},
			IsError: true,
		})
	}
	if result.Error != "" {
		return marshalOrInternalError(rpcCallToolResult{
			Content: []rpcContentBlock{{Type: string(ContentText), Text: result.Error}},
			IsError: true,
		})
	}
	return marshalOrInternalError(rpcCallToolResult{
		Content: []rpcContentBlock{{Type: string(ContentText), Text: result.Output}},
	})
}

func (d *Dispatcher) handleResourcesList() (json.RawMessage, *rpcError) {
	// The resource layer dispatches by scheme rather than enumerating a
	// catalog; a static placeholder list advertises the schemes this
	// process is willing to serve. Concrete URIs are resolved lazily on read.
	descs := []rpcToolDescriptor{
		{Name: "memory://", Description: "working/long-term memory items"},
		{Name: "file://", Description: "workspace files"},
		{Name: "config://", Description: "runtime configuration values"},
	}
	return marshalOrInternalError(rpcListToolsResult{Tools: descs})
}

type readResourceParams struct {
	URI string `json:"uri"`
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p readResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &rpcError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid resources/read params: %v", err)}
	}
	if d.resources == nil {
		return nil, &rpcError{Code: CodeResourceNotFound, Message: "no resource manager configured"}
	}
	res, err := d.resources.Get(ctx, p.URI)
	if err != nil {
		return nil, &rpcError{Code: CodeResourceNotFound, Message: err.Error()}
	}
	return marshalOrInternalError(struct {
		URI      string `json:"uri"`
		MIMEType string `json:"mimeType"`
		Text     string `json:"text"`
	}{URI: res.URI, MIMEType: res.MIMEType, Text: string(res.Content)})
}

func marshalOrInternalError(v any) (json.RawMessage, *rpcError) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &rpcError{Code: CodeInternalError, Message: fmt.Sprintf("marshal result: %v", err)}
	}
	return data, nil
}

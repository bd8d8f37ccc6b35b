package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/pocketomega/axon/internal/agenterr"
)

// ContentKind tags one block of a ToolResult's content array, per spec.md §6.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentAudio    ContentKind = "audio"
	ContentResource ContentKind = "resource"
	ContentOther    ContentKind = "other"
)

// ContentBlock is one tagged element of a ToolResult.
type ContentBlock struct {
	Type ContentKind
	Text string
}

// ToolResult is the outcome of a ProtocolClient.CallTool, a list of tagged
// content blocks mirroring the wire shape exactly (spec.md §3, §6).
type ToolResult struct {
	Content []ContentBlock
	IsError bool
}

// ProtocolDescriptor is the tools/list entry shape surfaced to callers.
type ProtocolDescriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ProtocolClient composes exactly one Transport and performs the MCP
// initialize handshake described in spec.md §4.6: the client sends
// "initialize" with {protocolVersion, capabilities, clientInfo}, then a
// "notifications/initialized" notification with no response expected.
type ProtocolClient struct {
	transport Transport
	mu        sync.RWMutex
	tools     []ProtocolDescriptor
}

// NewProtocolClient constructs a client around an already-connected
// Transport (see NewTransport) and completes the initialize handshake.
func NewProtocolClient(ctx context.Context, t Transport) (*ProtocolClient, error) {
	c := &ProtocolClient{transport: t}
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "axon", "version": "0.1.0"},
	}
	raw, err := t.SendRequest(ctx, "initialize", params)
	if err != nil {
		return nil, fmt.Errorf("mcp: initialize: %w", err)
	}
	var result rpcInitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: parse initialize result: %w", err)
	}
	if err := checkProtocolVersion(result.ProtocolVersion); err != nil {
		return nil, err
	}
	// notifications/initialized carries no response; errors here are
	// logged by the caller's transport, not fatal to the handshake.
	_, _ = t.SendRequest(ctx, "notifications/initialized", nil)
	return c, nil
}

// checkProtocolVersion applies spec.md §4.6's rule: a mismatch is a soft
// warning unless the major (year) component differs, in which case it is
// fatal with VersionMismatch.
func checkProtocolVersion(actual string) error {
	if actual == "" || actual == ProtocolVersion {
		return nil
	}
	if len(actual) < 4 || len(ProtocolVersion) < 4 || actual[:4] != ProtocolVersion[:4] {
		return agenterr.New(agenterr.KindVersionMismatch,
			fmt.Sprintf("mcp: protocol version mismatch: expected %s major, got %s", ProtocolVersion, actual))
	}
	log.Printf("[MCP] Warning: server protocol version %s differs from %s; continuing", actual, ProtocolVersion)
	return nil
}

// ListTools calls tools/list and caches the descriptors.
func (c *ProtocolClient) ListTools(ctx context.Context) ([]ProtocolDescriptor, error) {
	raw, err := c.transport.SendRequest(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: tools/list: %w", err)
	}
	var result rpcListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: parse tools/list: %w", err)
	}
	descs := make([]ProtocolDescriptor, 0, len(result.Tools))
	for _, td := range result.Tools {
		descs = append(descs, ProtocolDescriptor{Name: td.Name, Description: td.Description, InputSchema: td.InputSchema})
	}
	c.mu.Lock()
	c.tools = descs
	c.mu.Unlock()
	return descs, nil
}

// CallTool calls tools/call and decodes the content blocks.
func (c *ProtocolClient) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	params := map[string]any{"name": name, "arguments": args}
	raw, err := c.transport.SendRequest(ctx, "tools/call", params)
	if err != nil {
		return ToolResult{}, fmt.Errorf("mcp: tools/call %q: %w", name, err)
	}
	var result rpcCallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ToolResult{}, fmt.Errorf("mcp: parse tools/call result: %w", err)
	}
	blocks := make([]ContentBlock, 0, len(result.Content))
	for _, b := range result.Content {
		kind := ContentKind(b.Type)
		switch kind {
		case ContentText, ContentImage, ContentAudio, ContentResource:
		default:
			kind = ContentOther
		}
		blocks = append(blocks, ContentBlock{Type: kind, Text: b.Text})
	}
	return ToolResult{Content: blocks, IsError: result.IsError}, nil
}

// Close shuts down the underlying transport.
func (c *ProtocolClient) Close() error { return c.transport.Close() }

// ClientManager is the keyed table of ProtocolClient instances described in
// spec.md §4.6: add_server connects and discovers tools (resources are
// not listed),
// call_tool forwards to the named server, disconnect_all closes every
// transport and aggregates errors.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[string]*ProtocolClient
}

// NewClientManager creates an empty manager.
func NewClientManager() *ClientManager {
	return &ClientManager{clients: make(map[string]*ProtocolClient)}
}

// AddServer connects to cfg, completes the handshake, and discovers tools.
func (m *ClientManager) AddServer(ctx context.Context, name string, cfg TransportConfig) error {
	t, err := NewTransport(ctx, cfg)
	if err != nil {
		return err
	}
	client, err := NewProtocolClient(ctx, t)
	if err != nil {
		_ = t.Close()
		return err
	}
	if _, err := client.ListTools(ctx); err != nil {
		_ = t.Close()
		return err
	}
	m.mu.Lock()
	m.clients[name] = client
	m.mu.Unlock()
	return nil
}

// CallTool forwards a tools/call to the named server.
func (m *ClientManager) CallTool(ctx context.Context, server, name string, args map[string]any) (ToolResult, error) {
	m.mu.RLock()
	client, ok := m.clients[server]
	m.mu.RUnlock()
	if !ok {
		return ToolResult{}, fmt.Errorf("mcp: unknown server %q", server)
	}
	return client.CallTool(ctx, name, args)
}

// DisconnectAll closes every managed transport, aggregating per-server errors.
func (m *ClientManager) DisconnectAll() []error {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*ProtocolClient)
	m.mu.Unlock()

	var errs []error
	for name, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %q: %w", name, err))
		}
	}
	return errs
}

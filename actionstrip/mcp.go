package actionstrip

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/osintools/actionstrip/selectors"
	"github.com/hazyhaar/osintools/kit"
)

// RegisterMCP registers actionstrip tools on an MCP server.
func (s *Stripper) RegisterMCP(srv *mcp.Server) {
	s.registerStripTool(srv)
	s.registerListSelectorsTool(srv)
	s.registerValidateSelectorsTool(srv)
	s.registerListPagesTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

func (s *Stripper) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(s.logger, name))(ep)
}

// --- strip_html ---

type stripRequest struct {
	HTML      string   `json:"html"`
	Inert     bool     `json:"inert,omitempty"`
	Selectors []string `json:"selectors,omitempty"`
}

func (s *Stripper) registerStripTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "actionstrip_strip_html",
		Description: "Remove action controls (like, comment, share, follow, menus) from an HTML document. Returns the cleaned HTML and a removal report.",
		InputSchema: inputSchema(map[string]any{
			"html":      map[string]any{"type": "string", "description": "Full HTML document"},
			"inert":     map[string]any{"type": "boolean", "description": "Also drop scripts and event handlers (output is a body fragment)"},
			"selectors": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Selector list to apply instead of the configured one"},
		}, []string{"html"}),
	}

	endpoint := s.endpoint(tool.Name, func(ctx context.Context, req any) (any, error) {
		r := req.(*stripRequest)
		list := selectors.Normalize(r.Selectors)
		if len(list) == 0 {
			list = s.Selectors()
		}
		return StripHTML(ctx, strings.NewReader(r.HTML), StripOptions{
			Selectors: list,
			Inert:     r.Inert,
			Logger:    s.logger,
		})
	})

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r stripRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- list_selectors ---

func (s *Stripper) registerListSelectorsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "actionstrip_list_selectors",
		Description: "List the CSS selectors applied to every page, in evaluation order.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := s.endpoint(tool.Name, func(_ context.Context, _ any) (any, error) {
		return map[string]any{"selectors": s.Selectors()}, nil
	})

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- validate_selectors ---

type validateRequest struct {
	Selectors []string `json:"selectors"`
}

// ValidateResult lists the selectors that do not compile.
type ValidateResult struct {
	Count   int                 `json:"count"`
	Invalid []selectors.Invalid `json:"invalid"`
}

func validate(list []string) ValidateResult {
	l := selectors.List(list)
	bad := l.Validate()
	if bad == nil {
		bad = []selectors.Invalid{}
	}
	return ValidateResult{Count: len(l), Invalid: bad}
}

func (s *Stripper) registerValidateSelectorsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "actionstrip_validate_selectors",
		Description: "Check that CSS selectors compile. Invalid selectors are reported with their index and parse error.",
		InputSchema: inputSchema(map[string]any{
			"selectors": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Selectors to check"},
		}, []string{"selectors"}),
	}

	endpoint := s.endpoint(tool.Name, func(_ context.Context, req any) (any, error) {
		return validate(req.(*validateRequest).Selectors), nil
	})

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r validateRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- list_pages ---

func (s *Stripper) registerListPagesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "actionstrip_list_pages",
		Description: "List live pages with their removal counters.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := s.endpoint(tool.Name, func(_ context.Context, _ any) (any, error) {
		return s.Pages(), nil
	})

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

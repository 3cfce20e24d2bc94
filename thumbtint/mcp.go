package thumbtint

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/kit"
)

// Version is reported to MCP clients.
const Version = "0.3.0"

// NewMCPServer creates an MCP server with every thumbtint tool registered.
func (s *Service) NewMCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "thumbtint", Version: Version}, nil)
	s.RegisterMCP(srv)
	return srv
}

// RegisterMCP registers thumbtint tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "thumbtint_render",
		Description: "Re-skin a saved feed page: replace every video thumbnail with a gradient derived from the channel avatar color. Returns the rewritten HTML, with scripts and event handlers stripped, and the pass report.",
		InputSchema: kit.InputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "Full HTML document of the feed page"},
			"url":  map[string]any{"type": "string", "description": "URL the page was saved from, used to resolve relative avatar URLs"},
		}, []string{"html"}),
	}, s.safeRenderEP, kit.DecodeJSON[renderRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "thumbtint_gradient",
		Description: "Compute the gradient painted for an avatar color given as rgb(r, g, b). Unparseable input yields a fallback palette gradient.",
		InputSchema: kit.InputSchema(map[string]any{
			"color": map[string]any{"type": "string", "description": "Avatar color, e.g. rgb(200, 100, 50)"},
		}, []string{"color"}),
	}, s.gradientEP, kit.DecodeJSON[gradientRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "thumbtint_pages",
		Description: "List the feed pages being re-skinned, with their scheduling state and run count.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}, s.pagesEP, kit.DecodeJSON[struct{}]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "thumbtint_run",
		Description: "Schedule a replacement pass on an observed page. The pass is debounced like a mutation batch.",
		InputSchema: kit.InputSchema(map[string]any{
			"page_id": map[string]any{"type": "string", "description": "Page ID from thumbtint_pages"},
		}, []string{"page_id"}),
	}, s.runEP, kit.DecodeJSON[pageRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "thumbtint_stats",
		Description: "Aggregate pass statistics: candidates, replacements, skips, failures and palette fallbacks.",
		InputSchema: kit.InputSchema(map[string]any{
			"page_id": map[string]any{"type": "string", "description": "Restrict to one page (default: all)"},
		}, nil),
	}, s.statsEP, kit.DecodeJSON[pageRequest]())
}

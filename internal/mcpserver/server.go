// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the myfile directory to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/myfview/internal/apperr"
	"github.com/starford/myfview/internal/myfileservice"
)

// FormatsURI is the resource describing output formats and query parameters.
const FormatsURI = "myfview://formats"

// Server wraps the MCP server with myfview tools.
type Server struct {
	mcp *server.MCPServer
	svc *myfileservice.Service
}

// New creates a new MCP server with all myfview tools registered.
func New(svc *myfileservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"myfview",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_myfiles",
		mcp.WithDescription("List the identifiers and display names of every myfile in the directory."),
	), s.listMyfiles)

	s.mcp.AddTool(mcp.NewTool("search_myfiles",
		mcp.WithDescription("Full-text search through myfile names and public fields."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchMyfiles)

	s.mcp.AddTool(mcp.NewTool("read_myfile",
		mcp.WithDescription("Read one myfile as JSON, private fields removed."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Identifier, as used in //<name>")),
	), s.readMyfile)

	s.mcp.AddTool(mcp.NewTool("render_myfile",
		mcp.WithDescription("Render a myfile exactly as the web viewer would for the given format. "+
			"Read the formats contract first via get_format_aliases or the "+FormatsURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Identifier, as used in //<name>")),
		mcp.WithString("format", mcp.Description("Format alias, e.g. yaml, toml, cli, html (default json)")),
	), s.renderMyfile)

	s.mcp.AddTool(mcp.NewTool("get_format_aliases",
		mcp.WithDescription("Returns the output formats, their aliases and the query parameters the viewer understands."),
	), s.getFormatAliases)

	s.mcp.AddResource(
		mcp.NewResource(FormatsURI, "Output Formats",
			mcp.WithResourceDescription("Output formats, aliases and query parameters of the myfile viewer."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listMyfiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListMyfiles(ctx, 1000, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no myfiles found"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.Name
		if it.DisplayName != "" {
			lines[i] += "\t" + it.DisplayName
		}
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchMyfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readMyfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetMyfile(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(describe(name, err)), nil
	}
	out, _ := json.MarshalIndent(d, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) renderMyfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	alias := ""
	if f, err := req.RequireString("format"); err == nil {
		alias = f
	}
	res, _, found, err := s.svc.Render(ctx, name, alias)
	if err != nil {
		return mcp.NewToolResultError(describe(name, err)), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(string(res.Body)), nil
}

func (s *Server) getFormatAliases(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatsContract()), nil
}

func (s *Server) readFormatsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatsURI,
			MIMEType: "text/markdown",
			Text:     FormatsContract(),
		},
	}, nil
}

func describe(name string, err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("not found: %s", name)
	case errors.Is(err, apperr.ErrInvalidIdentifier):
		return fmt.Sprintf("invalid identifier: %q", name)
	}
	return err.Error()
}

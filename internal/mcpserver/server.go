// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Nuclinotion tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/eniileme/nuclinotion/internal/jobservice"
	"github.com/eniileme/nuclinotion/internal/models"
)

// Server wraps the MCP server with Nuclinotion tools.
type Server struct {
	mcp *server.MCPServer
	svc *jobservice.Service
}

// New creates a new MCP server with all Nuclinotion tools registered.
func New(svc *jobservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Nuclinotion",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("organize_archive",
		mcp.WithDescription("Start organizing a Markdown export archive into an import-ready bundle. "+
			"The archive must already be on the server; use the upload_archive tool first if needed. "+
			"Read the archive layout via the get_archive_contract tool or the "+
			"nuclinotion://archive-format resource."),
		mcp.WithString("notes_zip_path", mcp.Required(), mcp.Description("Server-side path to the notes zip archive")),
		mcp.WithString("assets_zip_path", mcp.Description("Optional server-side path to the assets zip archive")),
		mcp.WithString("grouping_strategy", mcp.Description("Grouping strategy: cluster (default), headings, or tags")),
		mcp.WithString("clustering_k", mcp.Description("Number of sections for the cluster strategy (0 or empty = automatic)")),
	), s.organizeArchive)

	s.mcp.AddTool(mcp.NewTool("job_status",
		mcp.WithDescription("Get the current status and progress of an organize job."),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("The job id returned by organize_archive")),
	), s.jobStatus)

	s.mcp.AddTool(mcp.NewTool("job_report",
		mcp.WithDescription("Read the Markdown run report of a finished organize job."),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("The job id returned by organize_archive")),
	), s.jobReport)

	s.mcp.AddTool(mcp.NewTool("job_download_path",
		mcp.WithDescription("Get the server-side path of a ready job's output archive."),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("The job id returned by organize_archive")),
	), s.jobDownloadPath)

	s.mcp.AddTool(mcp.NewTool("upload_archive",
		mcp.WithDescription("Upload a zip archive to the server from a URL or base64 data URI, "+
			"returning the staged path to pass to organize_archive."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP/HTTPS URL or data: URI of the zip archive")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadArchive)

	s.mcp.AddTool(mcp.NewTool("get_archive_contract",
		mcp.WithDescription("Returns the expected layout of input archives and the available "+
			"grouping strategies. Call this before preparing archives for organize_archive."),
	), s.getArchiveContract)

	s.mcp.AddTool(mcp.NewTool("cleanup_expired",
		mcp.WithDescription("Remove expired job workspaces and their records."),
	), s.cleanupExpired)

	// Resource: archive format contract.
	s.mcp.AddResource(
		mcp.NewResource("nuclinotion://archive-format", "Archive Format Contract",
			mcp.WithResourceDescription("Expected layout of notes and assets archives plus grouping strategies."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readArchiveFormatResource,
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

func (s *Server) organizeArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notesPath, err := req.RequireString("notes_zip_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	assetsPath := ""
	if v, aErr := req.RequireString("assets_zip_path"); aErr == nil {
		assetsPath = v
	}

	opts := models.ProcessingOptions{}
	if v, sErr := req.RequireString("grouping_strategy"); sErr == nil {
		opts.Strategy = v
	}
	if v, kErr := req.RequireString("clustering_k"); kErr == nil && v != "" {
		k, convErr := strconv.Atoi(v)
		if convErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("clustering_k must be an integer: %s", v)), nil
		}
		opts.ClusteringK = k
	}

	status, err := s.svc.Submit(ctx, notesPath, assetsPath, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) jobStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := s.svc.Status(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) jobReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.Report(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report), nil
}

func (s *Server) jobDownloadPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.DownloadPath(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(path), nil
}

func (s *Server) getArchiveContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArchiveFormatContract), nil
}

func (s *Server) readArchiveFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "nuclinotion://archive-format",
			MIMEType: "text/markdown",
			Text:     ArchiveFormatContract,
		},
	}, nil
}

func (s *Server) cleanupExpired(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	removed, err := s.svc.CleanupExpired(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %d expired jobs", removed)), nil
}

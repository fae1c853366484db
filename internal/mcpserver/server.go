// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Scribe documents and notebook cells for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scribe/internal/documents"
	"github.com/starford/scribe/internal/execution"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/notebook"
)

const defaultRunWait = 2 * time.Minute

// Server wraps the MCP server with Scribe tools.
type Server struct {
	mcp    *server.MCPServer
	docs   *documents.Manager
	engine *notebook.Engine
	exec   *execution.Executor
	fetch  fetcher
}

// New creates a new MCP server with all Scribe tools registered.
func New(docs *documents.Manager, engine *notebook.Engine, exec *execution.Executor) *Server {
	s := &Server{docs: docs, engine: engine, exec: exec, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"Scribe",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Case-insensitive substring search over document titles and content. "+
			"An empty query lists every document."),
		mcp.WithString("query", mcp.Description("Search text (empty for all)")),
		mcp.WithString("sort", mcp.Description("Sort order"), mcp.Enum("modified", "created", "title", "mode")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document with its ordered notebook cells and their execution status."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a document. Notebook documents start with one empty code cell. "+
			"Read the format contract first via get_document_contract or the scribe://document-format resource."),
		mcp.WithString("title", mcp.Description("Title (defaults to Untitled)")),
		mcp.WithString("mode", mcp.Description("Document mode"), mcp.Enum("plain", "notebook")),
		mcp.WithString("content", mcp.Description("Body text for plain documents")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("append_cell",
		mcp.WithDescription("Append a cell to the end of a notebook document."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("kind", mcp.Description("Cell kind"), mcp.Enum("code", "markdown", "text")),
		mcp.WithString("input", mcp.Description("Initial cell input")),
	), s.appendCell)

	s.mcp.AddTool(mcp.NewTool("run_cell",
		mcp.WithDescription("Execute a cell with the AI assistant. Code cells are explained unless they "+
			"ask a question; markdown and text cells get a general answer. Waits for the result by default."),
		mcp.WithString("cell_id", mcp.Required(), mcp.Description("Cell ID")),
		mcp.WithBoolean("wait", mcp.Description("Wait for the execution to finish (default true)")),
	), s.runCell)

	s.mcp.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Import a Markdown, text or Jupyter .ipynb file from an http(s) URL or a base64 data URI."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:...;base64, URI")),
		mcp.WithString("filename", mcp.Description("File name used for the title and format (e.g. lab.ipynb)")),
	), s.importDocument)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the Scribe document and cell format contract."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Document Format Contract",
			mcp.WithResourceDescription("How Scribe documents, cells and imports are structured."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

type documentView struct {
	models.Document
	Cells []models.Cell `json:"cells"`
}

func (s *Server) view(ctx context.Context, d models.Document) (documentView, error) {
	cells, err := s.engine.Cells(ctx, d.ID)
	if err != nil {
		return documentView{}, err
	}
	s.exec.Annotate(cells)
	return documentView{Document: d, Cells: cells}, nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.docs.Search(ctx, req.GetString("query", ""), req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type hit struct {
		ID       string      `json:"id"`
		Title    string      `json:"title"`
		Mode     models.Mode `json:"mode"`
		Favorite bool        `json:"favorite"`
		Cells    int         `json:"cells"`
	}
	hits := make([]hit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, hit{ID: d.ID, Title: d.Title, Mode: d.Mode, Favorite: d.Favorite, Cells: len(d.CellIDs)})
	}
	return jsonResult(hits)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	v, err := s.view(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.docs.Create(ctx, documents.CreateParams{
		Title: req.GetString("title", ""),
		Mode:  req.GetString("mode", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content := req.GetString("content", ""); content != "" {
		if d, err = s.docs.UpdateContent(ctx, d.ID, content); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	v, err := s.view(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

func (s *Server) appendCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.engine.Append(ctx, docID, models.CellKind(req.GetString("kind", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if input := req.GetString("input", ""); input != "" {
		if c, err = s.engine.UpdateInput(ctx, c.ID, input); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return jsonResult(c)
}

func (s *Server) runCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cellID, err := req.RequireString("cell_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ticket, err := s.exec.Run(ctx, cellID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ticket.Started || !req.GetBool("wait", true) {
		return jsonResult(ticket)
	}

	waitCtx, cancel := context.WithTimeout(ctx, defaultRunWait)
	defer cancel()
	status, err := s.exec.Wait(waitCtx, cellID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("waiting for %s: %v", cellID, err)), nil
	}

	c, err := s.docs.Cell(ctx, cellID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c.Status = status
	if status == models.StatusError {
		return mcp.NewToolResultError(c.Output), nil
	}
	return jsonResult(c)
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}

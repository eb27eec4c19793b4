package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/logging"
)

const (
	implementationName = "glue-mcp"
	shutdownTimeout    = 5 * time.Second
)

// NewMCPServer registers every tool and resource of s on a new MCP server.
func NewMCPServer(s *Server, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: implementationName, Version: version},
		&mcp.ServerOptions{
			Logger:       logging.GetLogger(),
			Instructions: fmt.Sprintf("Ticket tools backed by the %s provider.", s.scheme),
		},
	)

	for _, tool := range s.ListTools() {
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}

	for _, resource := range s.ListResources() {
		server.AddResource(&mcp.Resource{
			URI:         resource.URI,
			Name:        resource.Name,
			Description: resource.Description,
			MIMEType:    resource.MIMEType,
		}, s.readHandler)
	}

	return server
}

// toolHandler reports failures inside the result so the client can see the
// error kind, rather than as a protocol error.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		result, err := s.CallTool(ctx, name, args)
		if err != nil {
			return errorResult(err), nil
		}

		text, err := json.Marshal(result)
		if err != nil {
			return errorResult(apperrors.Wrap(apperrors.CodeInternal, err, "encode result")), nil
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
			StructuredContent: result,
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	payload := EncodeError(err)
	text, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
		StructuredContent: payload,
		IsError:           true,
	}
}

func (s *Server) readHandler(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeUnknownResource) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      content.URI,
			MIMEType: content.MIMEType,
			Text:     content.Text,
		}},
	}, nil
}

// Serve runs s over stdio, or over streamable HTTP when httpAddr is set, and
// blocks until ctx is cancelled or the transport closes.
func Serve(ctx context.Context, s *Server, version, httpAddr string) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = s.Stop(context.Background()) }()

	server := NewMCPServer(s, version)
	if httpAddr == "" {
		err := server.Run(ctx, &mcp.StdioTransport{})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("serve stdio: %w", err)
		}
		return nil
	}
	return serveHTTP(ctx, server, httpAddr)
}

func serveHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("listening for MCP over HTTP", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

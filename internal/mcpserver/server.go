// Package mcpserver exposes the application as a catalog of tools and
// readable resources. Server is protocol neutral; NewMCPServer binds it to
// the Model Context Protocol SDK.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielolaszy/glue-mcp/internal/app"
	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/logging"
)

const mimeJSON = "application/json"

// Resource describes a readable URI.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
}

// ResourceContent is the result of reading a resource.
type ResourceContent struct {
	URI      string
	MIMEType string
	Text     string
}

type resourceReader func(ctx context.Context) (any, error)

type resourceDef struct {
	resource Resource
	read     resourceReader
}

// Server dispatches tool calls and resource reads to the application. It
// holds no per-call state, so one Server may serve concurrent calls.
type Server struct {
	app       *app.Application
	scheme    string
	tools     []toolDef
	byName    map[string]toolDef
	resources []resourceDef
}

// New builds a Server over application. Resource URIs use the provider name
// as their scheme.
func New(application *app.Application) *Server {
	s := &Server{app: application, scheme: application.Provider()}
	s.tools = s.catalog()
	s.byName = make(map[string]toolDef, len(s.tools))
	for _, def := range s.tools {
		s.byName[def.tool.Name] = def
	}
	s.resources = s.resourceCatalog()
	return s
}

// ListTools returns the tool catalog in a fixed order.
func (s *Server) ListTools() []Tool {
	tools := make([]Tool, 0, len(s.tools))
	for _, def := range s.tools {
		tools = append(tools, def.tool)
	}
	return tools
}

// CallTool validates args for the named tool, runs it and returns a value
// ready for JSON encoding. Argument errors are reported before the backend
// is contacted.
func (s *Server) CallTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	callID := uuid.NewString()
	log := logging.WithOperation("call_tool", "tool", name, "call_id", callID, "provider", s.scheme)

	def, ok := s.byName[name]
	if !ok {
		log.Warn("unknown tool")
		return nil, apperrors.Newf(apperrors.CodeUnknownTool, "unknown tool %q", name)
	}

	decoded, err := decodeArguments(args)
	if err != nil {
		log.Warn("rejected tool arguments", "error", err)
		return nil, err
	}

	start := time.Now()
	result, err := def.handle(ctx, decoded)
	if err != nil {
		log.Error("tool call failed", "error", err, "kind", apperrors.GetCode(err), "duration", time.Since(start))
		return nil, err
	}
	log.Info("tool call succeeded", "duration", time.Since(start))
	return result, nil
}

// ListResources returns the resource catalog.
func (s *Server) ListResources() []Resource {
	resources := make([]Resource, 0, len(s.resources))
	for _, def := range s.resources {
		resources = append(resources, def.resource)
	}
	return resources
}

// ReadResource resolves uri and returns its pretty-printed JSON.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	log := logging.WithOperation("read_resource", "uri", uri, "call_id", uuid.NewString())

	for _, def := range s.resources {
		if def.resource.URI != uri {
			continue
		}
		value, err := def.read(ctx)
		if err != nil {
			log.Error("resource read failed", "error", err, "kind", apperrors.GetCode(err))
			return nil, err
		}
		text, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "encode resource "+uri)
		}
		log.Info("resource read")
		return &ResourceContent{URI: uri, MIMEType: def.resource.MIMEType, Text: string(text)}, nil
	}

	log.Warn("unknown resource")
	return nil, apperrors.Newf(apperrors.CodeUnknownResource, "unknown resource %q", uri)
}

func (s *Server) uri(path string) string {
	return fmt.Sprintf("%s://%s", s.scheme, path)
}

func (s *Server) resourceCatalog() []resourceDef {
	return []resourceDef{
		{
			resource: Resource{
				URI:         s.uri("tickets/assigned"),
				Name:        "Assigned tickets",
				Description: "Tickets assigned to the current user",
				MIMEType:    mimeJSON,
			},
			read: func(ctx context.Context) (any, error) {
				user, err := s.app.GetCurrentUser(ctx)
				if err != nil {
					return nil, err
				}
				tickets, err := s.app.GetAssignedTickets(ctx, user.ID)
				if err != nil {
					return nil, err
				}
				return ticketsResult(tickets), nil
			},
		},
		{
			resource: Resource{
				URI:         s.uri("user/current"),
				Name:        "Current user",
				Description: "The user the server is authenticated as",
				MIMEType:    mimeJSON,
			},
			read: func(ctx context.Context) (any, error) {
				return s.app.GetCurrentUser(ctx)
			},
		},
		{
			resource: Resource{
				URI:         s.uri("tickets/active"),
				Name:        "Active tickets",
				Description: "The current user's tickets that are not closed or cancelled",
				MIMEType:    mimeJSON,
			},
			read: func(ctx context.Context) (any, error) {
				tickets, err := s.app.GetMyActiveTickets(ctx)
				if err != nil {
					return nil, err
				}
				return ticketsResult(tickets), nil
			},
		},
		{
			resource: Resource{
				URI:         s.uri("workspace"),
				Name:        "Workspace",
				Description: "The workspace and its teams",
				MIMEType:    mimeJSON,
			},
			read: func(ctx context.Context) (any, error) {
				return s.app.GetWorkspace(ctx)
			},
		},
	}
}

// Start logs the catalog sizes. Transports are owned by the caller.
func (s *Server) Start(_ context.Context) error {
	logging.Info("tool server starting", "provider", s.scheme, "tools", len(s.tools), "resources", len(s.resources))
	return nil
}

// Stop logs shutdown.
func (s *Server) Stop(_ context.Context) error {
	logging.Info("tool server stopped", "provider", s.scheme)
	return nil
}

// ErrorPayload is the structured body returned for a failed tool call.
type ErrorPayload struct {
	Kind    apperrors.Code `json:"kind"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Status  int            `json:"status,omitempty"`
}

// EncodeError converts err into the {"error": {...}} envelope, keeping its kind.
func EncodeError(err error) map[string]ErrorPayload {
	payload := ErrorPayload{Kind: apperrors.GetCode(err), Message: err.Error()}
	if appErr, ok := apperrors.As(err); ok {
		payload.Field = appErr.Field
		payload.Status = appErr.Status
	}
	return map[string]ErrorPayload{"error": payload}
}

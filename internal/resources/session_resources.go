package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tailortalk/internal/server"
)

const (
	sessionScheme     = "session://"
	currentSessionURI = sessionScheme + "current"
)

// RegisterSessionResources registers the booking session resources.
func RegisterSessionResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}

	current := mcp.NewResource(
		currentSessionURI,
		"Current Booking Session",
		mcp.WithResourceDescription("The booking conversation of this MCP session: state, offered slots and booked event"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(current, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := clientSessionID(ctx)
		if id == "" {
			return nil, fmt.Errorf("no MCP client session")
		}
		return handleSession(ctx, request.Params.URI, id, sc)
	})

	byID := mcp.NewResourceTemplate(
		sessionScheme+"{session_id}",
		"Booking Session",
		mcp.WithTemplateDescription("A booking conversation by session ID"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(byID, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id, err := sessionIDFromURI(request.Params.URI)
		if err != nil {
			return nil, err
		}
		return handleSession(ctx, request.Params.URI, id, sc)
	})

	return nil
}

func clientSessionID(ctx context.Context) string {
	if cs := mcpserver.ClientSessionFromContext(ctx); cs != nil {
		return cs.SessionID()
	}
	return ""
}

// sessionIDFromURI extracts the ID from session://<id>
func sessionIDFromURI(uri string) (string, error) {
	id, ok := strings.CutPrefix(uri, sessionScheme)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid session URI %q", uri)
	}
	return id, nil
}

func handleSession(ctx context.Context, uri, id string, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	sess, found, err := sc.Service().Session(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("session %q not found", id)
	}

	jsonData, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

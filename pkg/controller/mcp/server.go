package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/upstratum/gitshelf/pkg/domain/model/resource"
	"github.com/upstratum/gitshelf/pkg/service/repofiles"
	"github.com/upstratum/gitshelf/pkg/utils/logging"
)

const serverName = "gitshelf"

// ResourceRegistry is the registration surface of the host MCP server.
// *server.MCPServer satisfies it; tests substitute their own.
type ResourceRegistry interface {
	AddResource(resource mcplib.Resource, handler mcpserver.ResourceHandlerFunc)
}

// Register enumerates the provider's repository once and publishes one
// resource per file. Content is not fetched here: each handler issues its
// own remote call when the host requests that resource.
func Register(ctx context.Context, registry ResourceRegistry, provider *repofiles.Provider) {
	descriptors := provider.Enumerate(ctx)

	for _, desc := range descriptors {
		registry.AddResource(newResource(desc), newReadHandler(provider, desc))
	}

	logging.From(ctx).Info("resources registered",
		"repository", provider.Coordinate().String(),
		"count", len(descriptors))
}

func newResource(desc *resource.Descriptor) mcplib.Resource {
	return mcplib.NewResource(desc.URI, desc.Name,
		mcplib.WithResourceDescription(desc.Description),
		mcplib.WithMIMEType(desc.MIMEType),
	)
}

func newReadHandler(provider *repofiles.Provider, desc *resource.Descriptor) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		content, err := provider.FetchContent(ctx, desc, req.Params.URI)
		if err != nil {
			logging.From(ctx).Error("failed to read resource",
				"uri", req.Params.URI, logging.ErrAttr(err))
			return nil, err
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      content.URI,
				MIMEType: content.MIMEType,
				Text:     content.Text,
			},
		}, nil
	}
}

// Server wraps the MCP server with the resource registration wiring.
type Server struct {
	mcp *mcpserver.MCPServer
}

func NewServer(version string) *Server {
	return &Server{
		mcp: mcpserver.NewMCPServer(serverName, version,
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
}

func (x *Server) Register(ctx context.Context, provider *repofiles.Provider) {
	Register(ctx, x.mcp, provider)
}

// ServeStdio speaks MCP over stdin/stdout and blocks until the stream is
// closed. The logger bound to ctx is carried into every request handler.
func (x *Server) ServeStdio(ctx context.Context) error {
	logger := logging.From(ctx)
	return mcpserver.ServeStdio(x.mcp, mcpserver.WithStdioContextFunc(
		func(reqCtx context.Context) context.Context {
			return logging.With(reqCtx, logger)
		},
	))
}

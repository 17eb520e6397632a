package auth

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
)

// Middleware resolves a valid credential once per tool call and injects an
// authorized X API client into the context. Tool calls without a usable
// credential fail with an actionable error instead of reaching the API.
func Middleware(apiProvider *provider.ApiProvider, logger *zap.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			client, err := apiProvider.Client(ctx)
			if err != nil {
				logger.Warn("Tool call without valid credential",
					zap.String("tool", req.Params.Name),
					zap.Error(err),
				)
				return mcp.NewToolResultError(err.Error()), nil
			}

			logger.Debug("Authenticated tool call", zap.String("tool", req.Params.Name))
			return next(WithClient(ctx, client), req)
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xmcp-dev/x-mcp-server/pkg/config"
	"github.com/xmcp-dev/x-mcp-server/pkg/oauth"
	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
	"github.com/xmcp-dev/x-mcp-server/pkg/server"
)

const version = "1.0.0"

func main() {
	setup := flag.Bool("setup", false, "run the interactive OAuth authorization flow")
	reset := flag.Bool("reset", false, "clear stored tokens")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "x-mcp-server: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "x-mcp-server: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	storage := oauth.NewFileStorage(cfg.TokenFile)
	flow := oauth.NewFlow(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, storage, logger)
	manager := oauth.NewManager(storage, flow, logger)

	switch {
	case *reset:
		manager.Reset()
		fmt.Println("Stored tokens cleared.")

	case *setup:
		if err := runSetup(cfg, flow, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			os.Exit(1)
		}

	default:
		apiProvider := provider.NewApiProvider(manager, logger)
		s := server.NewMCPServer(apiProvider, version, logger)

		if !manager.IsAuthenticated(context.Background()) {
			logger.Warn("No valid credential stored, tool calls will fail until setup runs",
				zap.String("hint", "run x-mcp-server --setup"),
			)
		}

		logger.Info("Starting MCP server on stdio", zap.String("version", version))
		if err := mcpserver.ServeStdio(s); err != nil {
			logger.Error("Server terminated", zap.Error(err))
			os.Exit(1)
		}
	}
}

func runSetup(cfg config.Config, flow *oauth.Flow, logger *zap.Logger) error {
	setupFlow := server.NewSetupFlow(flow, cfg.RedirectURI, oauth.DefaultScopes, logger)

	bundle, err := setupFlow.Run(context.Background())
	if err != nil {
		var denied *oauth.AuthorizationDeniedError
		switch {
		case errors.As(err, &denied):
			return fmt.Errorf("the authorization request was denied: %s", denied.Reason)
		case errors.Is(err, oauth.ErrAuthorizationTimeout):
			return fmt.Errorf("no authorization callback arrived in time; run setup again")
		case errors.Is(err, oauth.ErrInvalidCallback):
			return fmt.Errorf("received an invalid authorization callback; run setup again")
		default:
			return err
		}
	}

	fmt.Println("Authorization successful. Tokens saved.")
	if bundle.RefreshToken == "" {
		fmt.Println("Warning: no refresh token was issued; access will expire at",
			bundle.ExpiresAt.Format("15:04:05"), "and setup will need to be re-run.")
	}
	return nil
}

// newLogger builds the process logger. Logs go to stderr: stdout carries the
// MCP stdio transport.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

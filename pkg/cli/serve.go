package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/upstratum/gitshelf/pkg/cli/config"
	mcpctrl "github.com/upstratum/gitshelf/pkg/controller/mcp"
	"github.com/upstratum/gitshelf/pkg/service/repofiles"
	"github.com/upstratum/gitshelf/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		transport string
		addr      string
		githubCfg config.GitHub
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "transport",
				Aliases:     []string{"t"},
				Sources:     cli.EnvVars("GITSHELF_TRANSPORT"),
				Usage:       "MCP transport [stdio|http]",
				Value:       "stdio",
				Destination: &transport,
			},
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Sources:     cli.EnvVars("GITSHELF_ADDR"),
				Usage:       "Listen address for the http transport",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
		},
		githubCfg.Flags(),
	)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the MCP server",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logging.Default().Info("starting server",
				"transport", transport,
				"addr", addr,
				"github", githubCfg,
			)

			client, err := githubCfg.Configure(ctx)
			if err != nil {
				return err
			}

			provider := repofiles.New(client, githubCfg.Repository, githubCfg.Branch)
			srv := mcpctrl.NewServer(Version)

			// Enumeration completes before any transport accepts a request,
			// so the resource set is published atomically.
			srv.Register(ctx, provider)

			switch transport {
			case "stdio":
				return srv.ServeStdio(ctx)

			case "http":
				return serveHTTP(ctx, srv, addr)

			default:
				return goerr.New("unknown transport", goerr.V("transport", transport))
			}
		},
	}
}

func serveHTTP(ctx context.Context, srv *mcpctrl.Server, addr string) error {
	httpServer := http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := httpServer.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logging.From(ctx).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}

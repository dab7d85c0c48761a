package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/IsaacDSC/eeudesk/internal/agentapi"
	"github.com/IsaacDSC/eeudesk/pkg/logs"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local agent API and the background sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := c.config()
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				conf.Server.Addr = addr
			}
			offline, _ := cmd.Flags().GetBool("offline")

			rt, err := newRuntime(cmd.Context(), conf, offline)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(context.Background()); err != nil {
					logs.Error("Failed to close store", "error", err)
				}
			}()

			ln, err := net.Listen("tcp", conf.Server.Addr)
			if err != nil {
				return err
			}

			server := &http.Server{Handler: agentapi.NewHandler(rt.client, agentapi.WithBasicAuth(conf.Server.Users))}
			return serve(cmd.Context(), server, ln, rt, conf.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().String("addr", "", "Override HTTP_ADDR")
	return cmd
}

// serve runs the API, the syncer and the probe until ctx is done, then
// shuts the server down gracefully.
func serve(ctx context.Context, server *http.Server, ln net.Listener, rt *runtime, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logs.Info("Starting HTTP server", "addr", ln.Addr().String(), "online", rt.signal.Online(), "pending", rt.queue.Len())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return rt.client.RunSync(gctx)
	})

	if rt.probe != nil {
		g.Go(func() error {
			rt.probe.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logs.Info("Shutting down HTTP server")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	return g.Wait()
}

package cmd

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
	"github.com/sushantshinde2401/bookkeeper/internal/server"
	"github.com/sushantshinde2401/bookkeeper/internal/store"
)

// ensureServer returns the API address to use. Unless --server was given,
// a server that is not reachable is started in-process on the configured
// address. The returned func stops it.
func ensureServer(cmd *cobra.Command, logger *zap.Logger) (string, func(), error) {
	addr := cfg.ServerURL
	c := client.New(addr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	err := c.Ping(ctx)
	cancel()
	if err == nil || cmd.Flags().Changed("server") {
		return addr, func() {}, nil
	}

	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return "", nil, fmt.Errorf("invalid server address %q", addr)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return "", nil, fmt.Errorf("open database: %w", err)
	}

	srv := server.New(st, nil, u.Host, logger)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("embedded server error", zap.Error(err))
		}
	}()

	// Wait for server to be ready
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		if err := c.Ping(ctx); err == nil {
			break
		}
		if ctx.Err() != nil {
			st.Close()
			return "", nil, fmt.Errorf("timeout waiting for embedded server")
		}
		time.Sleep(50 * time.Millisecond)
	}
	logger.Info("embedded server started", zap.String("addr", addr), zap.String("db", cfg.DBPath))
	return addr, func() { st.Close() }, nil
}

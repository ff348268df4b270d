package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/server"
)

var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Long: `Serve the three-tab dashboard: company background search, overview
summarisation and annual report insight.

Example:
  coinsight serve
  coinsight serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default: server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default: server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Server
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	srv, err := server.NewServer(server.Deps{
		Store:     a.store,
		Company:   a.cfg.Company,
		NewsQuery: a.cfg.News.Query,
		Homepage:  a.homepage(),
		News:      a.news(),
		Reports:   a.reports(),
		Analyzer:  a.analyzer,
		History:   a.history,
	}, cfg, a.logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	fmt.Fprintf(os.Stderr, "Dashboard listening on http://%s:%d\n", cfg.Host, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		a.logger.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

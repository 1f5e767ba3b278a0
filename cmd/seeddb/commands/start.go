package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/gospiritual/yacy-search-server/libs/log"
	cmtos "github.com/gospiritual/yacy-search-server/libs/os"
	"github.com/gospiritual/yacy-search-server/publish"
	"github.com/gospiritual/yacy-search-server/seeddb"
)

const shutdownTimeout = 5 * time.Second

// StartCmd serves the seed list and, if configured, publishes it
// periodically.
var StartCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"node", "run"},
	Short:   "Run the seed directory",
	RunE:    runStart,
}

func init() {
	StartCmd.Flags().Bool("instrumentation.prometheus", config.Instrumentation.Prometheus,
		"serve Prometheus metrics")
	StartCmd.Flags().String("network.listen_addr", config.Network.ListenAddress,
		"address the seed list is served on")
	StartCmd.Flags().Duration("publish.interval", config.Publish.Interval,
		"publication interval (0 disables periodic publication)")
}

func runStart(cmd *cobra.Command, args []string) error {
	var (
		sdbOptions []seeddb.Option
		pubOptions []publish.PublisherOption
		servers    []*http.Server
	)
	if config.Instrumentation.Prometheus {
		ns := config.Instrumentation.Namespace
		sdbOptions = append(sdbOptions, seeddb.WithMetrics(seeddb.PrometheusMetrics(ns)))
		pubOptions = append(pubOptions, publish.WithMetrics(publish.PrometheusMetrics(ns)))
	}

	sdb, err := openDirectory(sdbOptions...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(publish.SeedListPath, publish.SeedListHandler(sdb, true, logger.With("module", "http")))
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	seedSrv, err := serve(listenAddr(config.Network.ListenAddress), corsMiddleware.Handler(mux), logger)
	if err != nil {
		sdb.Close()
		return err
	}
	servers = append(servers, seedSrv)

	if config.Instrumentation.Prometheus {
		metricsSrv, err := serve(config.Instrumentation.PrometheusListenAddr, promhttp.Handler(), logger)
		if err != nil {
			shutdown(servers)
			sdb.Close()
			return err
		}
		servers = append(servers, metricsSrv)
	}

	var publisher *publish.Publisher
	if config.Publish.Interval > 0 {
		uploader, err := publish.NewUploader(context.Background(), config.Publish)
		switch {
		case errors.Is(err, publish.ErrPublishDisabled):
			logger.Info("Seed list publication disabled")
		case err != nil:
			shutdown(servers)
			sdb.Close()
			return err
		default:
			publisher = publish.NewPublisher(config.Publish, sdb, uploader, pubOptions...)
			publisher.SetLogger(logger.With("module", "publish"))
			if err := publisher.Start(); err != nil {
				shutdown(servers)
				sdb.Close()
				return err
			}
		}
	}

	// Stop upon receiving SIGTERM or CTRL-C.
	cmtos.TrapSignal(logger, func() {
		if publisher != nil && publisher.IsRunning() {
			if err := publisher.Stop(); err != nil {
				logger.Error("Failed to stop publisher", "err", err)
			}
		}
		shutdown(servers)
		if err := sdb.Close(); err != nil {
			logger.Error("Failed to close seed tables", "err", err)
		}
	})

	logger.Info("Started seed directory",
		"hash", sdb.MySeed().Hash,
		"connected", sdb.SizeConnected(),
		"seed_list", seedSrv.Addr+publish.SeedListPath)

	// Run forever.
	select {}
}

// listenAddr strips the protocol prefix of addresses like tcp://0.0.0.0:8090.
func listenAddr(addr string) string {
	if i := strings.Index(addr, "://"); i >= 0 {
		return addr[i+3:]
	}
	return addr
}

func serve(addr string, h http.Handler, logger log.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", "addr", srv.Addr, "err", err)
		}
	}()
	logger.Info("Serving HTTP", "addr", srv.Addr)
	return srv, nil
}

func shutdown(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Failed to shut down HTTP server", "addr", srv.Addr, "err", err)
		}
	}
}

// Command framerpc-server serves the built-in function set over the framed
// RPC protocol. Configuration comes from FRAMERPC_* environment variables;
// see the config package.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"framerpc/config"
	"framerpc/discovery"
	"framerpc/funcs"
	"framerpc/middleware"
	"framerpc/observability"
	"framerpc/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := observability.InitLogger("framerpc-server", observability.ParseLevel(cfg.LogLevel))

	svr := server.New(log)
	svr.MaxPayloadBytes = cfg.MaxFrameBytes

	// Outermost first: recovery guards everything below it.
	svr.Use(middleware.Recovery(log))
	svr.Use(middleware.Logging(log))
	svr.Use(middleware.Metrics())
	if cfg.RateLimit > 0 {
		svr.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if cfg.RequestTimeout > 0 {
		svr.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	if err := funcs.RegisterAll(svr); err != nil {
		log.Fatal().Err(err).Msg("failed to register functions")
	}

	var disc discovery.Registry
	if len(cfg.EtcdEndpoints) > 0 {
		etcdReg, err := discovery.NewEtcdRegistry(cfg.EtcdEndpoints)
		if err != nil {
			log.Fatal().Err(err).Strs("endpoints", cfg.EtcdEndpoints).Msg("failed to connect to etcd")
		}
		defer etcdReg.Close()
		disc = etcdReg
	}

	if cfg.MetricsAddr != "" {
		observability.RegisterMetrics()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint up")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := svr.Shutdown(cfg.ShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("shutdown did not drain cleanly")
		}
	}()

	if err := svr.Serve("tcp", cfg.ListenAddr, cfg.AdvertiseAddr, disc); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

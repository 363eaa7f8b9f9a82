package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/tinychain/tinychain/app/services/node/handlers"
	"github.com/tinychain/tinychain/foundation/blockchain/p2p"
	"github.com/tinychain/tinychain/foundation/blockchain/params"
	"github.com/tinychain/tinychain/foundation/blockchain/peer"
	"github.com/tinychain/tinychain/foundation/blockchain/state"
	"github.com/tinychain/tinychain/foundation/blockchain/worker"
	"github.com/tinychain/tinychain/foundation/events"
	"github.com/tinychain/tinychain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It can be set at build time
// with -ldflags "-X main.build=...".
var build = "develop"

func main() {
	label := os.Getenv("TC_LOG_LABEL")
	if label == "" {
		label = "tinychain"
	}

	log, err := logger.New(label, os.Getenv("TC_LOG_LEVEL"))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Log struct {
			Level string `conf:"default:info,env:LOG_LEVEL"`
			Label string `conf:"default:tinychain,env:LOG_LABEL"`
		}
		Node struct {
			ChainPath  string   `conf:"default:chain.dat,env:CHAIN_PATH"`
			WalletPath string   `conf:"default:wallet.dat,env:WALLET_PATH"`
			Peers      []string `conf:"env:PEERS"`
			Port       int      `conf:"default:9999,env:PORT"`
			Host       string   `conf:"env:HOST"`
		}
		Web struct {
			APIHost         string        `conf:"default:0.0.0.0:8080"`
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "tinychain node",
		},
	}

	const prefix = "TC"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting node", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	// A peer set is a collection of known nodes in the network so
	// transactions and blocks can be shared.
	peerSet := peer.NewPeerSet()
	for _, host := range cfg.Node.Peers {
		if host != "" {
			peerSet.Add(peer.New(host))
		}
	}

	// The blockchain packages accept a function of this signature to
	// allow the application to log. These messages also feed any
	// websocket client connected through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Info(s)
		evts.Send(s)
	}

	st, err := state.New(state.Config{
		Params:     params.Mainnet(),
		ChainPath:  cfg.Node.ChainPath,
		Host:       cfg.Node.Host,
		NetPort:    cfg.Node.Port,
		KnownPeers: peerSet,
		EvHandler:  ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// =========================================================================
	// Start P2P Service

	srv := p2p.Server{
		Addr:      fmt.Sprintf("0.0.0.0:%d", cfg.Node.Port),
		Handler:   st,
		EvHandler: ev,
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting p2p server: %w", err)
	}
	defer srv.Shutdown()

	// The worker performs initial block download and then runs the
	// mining loop. It registers itself with the state.
	worker.Run(st, cfg.Node.WalletPath, ev)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 public API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Log:   log,
		State: st,
		Evts:  evts,
	})

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop api service gracefully: %w", err)
		}
	}

	return nil
}

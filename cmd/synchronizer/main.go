package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/bitcoin"
	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/exsat"
	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/repository/clickhouse"
	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/service/synchronizer"
	"github.com/goodnatureofminers/btc-synchronizer/internal/job"
	"github.com/goodnatureofminers/btc-synchronizer/internal/metrics"
	rpcclient2 "github.com/goodnatureofminers/btc-synchronizer/internal/pkg/btcd/rpcclient"
	"github.com/goodnatureofminers/btc-synchronizer/internal/transport"
	"github.com/goodnatureofminers/btc-synchronizer/pkg/batcher"
)

type config struct {
	RPCURL      string `long:"rpc-url" env:"SYNCHRONIZER_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser     string `long:"rpc-user" env:"SYNCHRONIZER_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword string `long:"rpc-password" env:"SYNCHRONIZER_RPC_PASSWORD" description:"Bitcoin RPC password"`
	Network     string `long:"network" env:"SYNCHRONIZER_NETWORK" description:"bitcoin network name used in metrics" default:"mainnet"`
	ZMQAddr     string `long:"zmq-addr" env:"SYNCHRONIZER_ZMQ_ADDR" description:"bitcoind ZMQ hashblock endpoint (needs -tags zmq)"`

	ChainEndpoints []string      `long:"chain-endpoint" env:"SYNCHRONIZER_CHAIN_ENDPOINTS" env-delim:"," description:"exSat RPC endpoint, repeatable" required:"true"`
	SignerURL      string        `long:"signer-url" env:"SYNCHRONIZER_SIGNER_URL" description:"signing relay base URL" required:"true"`
	ChainTimeout   time.Duration `long:"chain-timeout" env:"SYNCHRONIZER_CHAIN_TIMEOUT" description:"timeout for exSat requests" default:"30s"`
	Account        string        `long:"account" env:"SYNCHRONIZER_ACCOUNT" description:"synchronizer account" required:"true"`
	Permission     string        `long:"permission" env:"SYNCHRONIZER_PERMISSION" description:"account permission used to sign" default:"active"`
	PoolRegAccount string        `long:"poolreg-contract" env:"SYNCHRONIZER_POOLREG_CONTRACT" default:"poolreg.xsat"`
	BlkSyncAccount string        `long:"blksync-contract" env:"SYNCHRONIZER_BLKSYNC_CONTRACT" default:"blksync.xsat"`
	UtxoMngAccount string        `long:"utxomng-contract" env:"SYNCHRONIZER_UTXOMNG_CONTRACT" default:"utxomng.xsat"`

	StartHeight    uint64        `long:"start-height" env:"SYNCHRONIZER_START_HEIGHT" description:"first height the destination chain tracks" default:"840000"`
	ChunkSize      int           `long:"chunk-size" env:"SYNCHRONIZER_CHUNK_SIZE" description:"chunk size in bytes" default:"131072"`
	PushWorkers    int           `long:"push-workers" env:"SYNCHRONIZER_PUSH_WORKERS" description:"concurrent chunk pushes" default:"16"`
	PushRPS        int           `long:"push-rps" env:"SYNCHRONIZER_PUSH_RPS" description:"chunk pushes per second" default:"50"`
	UploadInterval time.Duration `long:"upload-interval" env:"SYNCHRONIZER_UPLOAD_INTERVAL" description:"upload job interval" default:"10s"`
	ParseInterval  time.Duration `long:"parse-interval" env:"SYNCHRONIZER_PARSE_INTERVAL" description:"parse job interval" default:"5s"`

	ClickhouseDSN string `long:"clickhouse-dsn" env:"SYNCHRONIZER_CLICKHOUSE_DSN" description:"ClickHouse DSN for the upload journal (optional)"`
	AdminAddr     string `long:"admin-addr" env:"SYNCHRONIZER_ADMIN_ADDR" description:"address for admin and metrics server" default:":2112"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("synchronizer failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	logger = logger.With(zap.String("account", cfg.Account))

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init bitcoin rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	source := bitcoin.NewSource(rpcclient2.NewObservedClient(rpcClient, metrics.NewRPCClient(cfg.Network)), logger)

	clientCfg := exsat.DefaultClientConfig()
	clientCfg.Endpoints = cfg.ChainEndpoints
	clientCfg.SignerURL = cfg.SignerURL
	clientCfg.Timeout = cfg.ChainTimeout
	gateway, err := exsat.NewClient(clientCfg, metrics.NewLedgerGateway(), logger)
	if err != nil {
		return fmt.Errorf("init exsat client: %w", err)
	}
	ledger := exsat.NewLedger(gateway, exsat.Contracts{
		PoolReg: cfg.PoolRegAccount,
		BlkSync: cfg.BlkSyncAccount,
		UtxoMng: cfg.UtxoMngAccount,
	}, cfg.Account, cfg.Permission)

	var (
		journal       synchronizer.UploadJournal = synchronizer.NopJournal{}
		journalReader transport.Journal
	)
	if cfg.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewJournalRepository())
		if err != nil {
			return fmt.Errorf("init journal repository: %w", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Warn("close journal repository", zap.Error(err))
			}
		}()
		batchJournal := synchronizer.NewBatchJournal(ctx, repo, batcher.Config{
			FlushSize:     100,
			FlushInterval: 5 * time.Second,
			RPS:           10,
			FlushRetries:  3,
			RetryDelay:    time.Second,
		}, logger)
		defer batchJournal.Close()
		journal, journalReader = batchJournal, repo
	} else {
		logger.Info("no clickhouse dsn, upload journal disabled")
	}

	syncCfg := synchronizer.DefaultConfig(cfg.Account)
	syncCfg.StartHeight = cfg.StartHeight
	syncCfg.ChunkSize = cfg.ChunkSize
	syncCfg.PushWorkers = cfg.PushWorkers
	syncCfg.PushRPS = cfg.PushRPS

	syncMetrics := metrics.NewSynchronizer()
	uploadJob, err := synchronizer.NewUploadJob(source, ledger, journal, syncMetrics, syncCfg, logger)
	if err != nil {
		return fmt.Errorf("init upload job: %w", err)
	}
	parseJob, err := synchronizer.NewParseJob(ledger, syncCfg, logger)
	if err != nil {
		return fmt.Errorf("init parse job: %w", err)
	}
	upload := job.NewGuard(uploadJob, syncMetrics, logger)
	parse := job.NewGuard(parseJob, syncMetrics, logger)

	blockSignal, err := startBlockSignal(ctx, cfg.ZMQAddr, logger)
	if err != nil {
		return fmt.Errorf("init block signal: %w", err)
	}

	admin := transport.NewAdminHandler(ctx, cfg.Account, upload, []transport.Job{upload, parse}, journalReader, logger)
	startAdminServer(ctx, cfg.AdminAddr, admin, logger)

	scheduler := job.NewScheduler(logger)
	scheduler.Add(upload, cfg.UploadInterval, blockSignal)
	scheduler.Add(parse, cfg.ParseInterval, nil)
	return scheduler.Run(ctx)
}

func startAdminServer(ctx context.Context, addr string, admin *transport.AdminHandler, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", admin.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting admin server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown admin server", zap.Error(err))
		}
	}()
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
}

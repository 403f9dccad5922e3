package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"belongchain/config"
	"belongchain/core/state"
	"belongchain/native/checkin"
	"belongchain/native/dexswap"
	"belongchain/native/escrow"
	"belongchain/native/rates"
	"belongchain/native/sigauth"
	"belongchain/observability/logging"
	"belongchain/observability/metrics"
	"belongchain/storage"
)

// engineAddressSeed derives the custodial working address of the check-in
// engine. It is a module account, not a key-backed one.
const engineAddressSeed = "belongchain/checkin/engine"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	logger := logging.Setup("belongd", cfg.LogEnvironment, cfg.LogFile)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node, err := buildNode(cfg, db)
	if err != nil {
		logger.Error("Failed to assemble node", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           node.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("RPC listening", slog.String("address", cfg.RPCAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("RPC server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
}

type node struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *checkin.Engine
	escrow *escrow.Ledger
	feed   *rates.ManualFeed
}

func engineAddress() [20]byte {
	var out [20]byte
	digest := ethcrypto.Keccak256([]byte(engineAddressSeed))
	copy(out[:], digest[12:])
	return out
}

func buildNode(cfg *config.Config, db storage.Database) (*node, error) {
	owner, err := config.DecodeAddress("Owner", cfg.Owner)
	if err != nil {
		return nil, err
	}
	managerAddr, err := config.DecodeAddress("Manager", cfg.Manager)
	if err != nil {
		return nil, err
	}
	vault, err := config.DecodeAddress("Vault", cfg.Vault)
	if err != nil {
		return nil, err
	}
	params, err := cfg.EngineParams()
	if err != nil {
		return nil, err
	}

	manager := state.NewManager(db)
	usd := state.NewTokenLedger(manager, state.TokenUSD)
	long := state.NewTokenLedger(manager, state.TokenLong)
	venueCredit := state.NewCreditLedger(manager, "venue")
	promoterCredit := state.NewCreditLedger(manager, "promoter")
	staking := state.NewStakingLedger(manager)

	engineAddr := engineAddress()
	authorizer := sigauth.NewAuthorizer(manager, engineAddr, cfg.ChainID)
	escrowLedger := escrow.NewLedger(manager, usd, long, engineAddr, vault)

	feed := rates.NewManualFeed(cfg.Payments.PriceFeedDecimals)
	if strings.TrimSpace(cfg.Payments.InitialPriceAnswer) != "" {
		answer, ok := new(big.Int).SetString(strings.TrimSpace(cfg.Payments.InitialPriceAnswer), 10)
		if !ok {
			return nil, fmt.Errorf("belongd: invalid InitialPriceAnswer %q", cfg.Payments.InitialPriceAnswer)
		}
		if err := feed.Set(answer, time.Now()); err != nil {
			return nil, err
		}
	}

	counters := metrics.NewCheckIn()
	counters.Register(prometheus.DefaultRegisterer)
	emitter := metrics.NewEmitter(counters, newLogEmitter(slog.Default()))
	escrowLedger.SetEmitter(emitter)

	router := dexswap.NewPaperRouter(params.Payments, usd, long, engineAddr, vault, feed)
	swapper := dexswap.NewSwapper(router, router, feed)
	swapper.SetEmitter(emitter)

	engine := checkin.NewEngine(manager, authorizer, engineAddr, owner, managerAddr)
	engine.SetEmitter(emitter)
	if err := engine.SetContracts(owner, checkin.Contracts{
		Escrow:         escrowLedger,
		USDToken:       usd,
		LongToken:      long,
		VenueCredit:    venueCredit,
		PromoterCredit: promoterCredit,
		Staking:        staking,
		PriceFeed:      feed,
		Swapper:        swapper,
	}); err != nil {
		return nil, err
	}
	if err := engine.SetParameters(owner, params); err != nil {
		return nil, err
	}

	return &node{
		cfg:    cfg,
		logger: slog.Default(),
		engine: engine,
		escrow: escrowLedger,
		feed:   feed,
	}, nil
}

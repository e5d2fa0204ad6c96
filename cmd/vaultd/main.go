package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vaultcore/config"
	"vaultcore/core/events"
	nativecommon "vaultcore/native/common"
	"vaultcore/native/vault"
	"vaultcore/observability/logging"
	"vaultcore/rpc"
	"vaultcore/storage"
)

const envName = "VAULTD_ENV"

// defaultVaultAddress is the module escrow account used when the operator does
// not configure one. It is not a spendable key-derived address.
var defaultVaultAddress = [20]byte{'v', 'a', 'u', 'l', 't', 'c', 'o', 'r', 'e', '/', 'e', 's', 'c', 'r', 'o', 'w'}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envName))
	logger := logging.Setup("vaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	engine, recorder, err := buildEngine(cfg, db)
	if err != nil {
		logger.Error("Failed to assemble engine", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go advancePeriods(ctx, engine)

	limiter := rpc.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           rpc.NewServer(engine, recorder, limiter, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("read api listening", slog.String("address", cfg.ListenAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("read api terminated", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", slog.Any("error", err))
	}
}

func buildEngine(cfg *config.Config, db storage.Database) (*vault.Engine, *events.Recorder, error) {
	params, err := cfg.Vault.Normalise().Parameters()
	if err != nil {
		return nil, nil, fmt.Errorf("vault parameters: %w", err)
	}

	vaultAddr, err := cfg.VaultAccount()
	if err != nil {
		return nil, nil, err
	}
	if vaultAddr == ([20]byte{}) {
		vaultAddr = defaultVaultAddress
	}

	auth, err := buildAuthorizer(cfg.Roles)
	if err != nil {
		return nil, nil, err
	}

	recorder := events.NewRecorder()
	engine := vault.NewEngine(vaultAddr, params)
	engine.SetState(vault.NewStore(db))
	engine.SetEmitter(recorder)
	engine.SetAuthorizer(auth)
	engine.SetPeriod(currentPeriod())
	return engine, recorder, nil
}

func buildAuthorizer(roles config.Roles) (*nativecommon.StaticAuthorizer, error) {
	auth := nativecommon.NewStaticAuthorizer()
	for capability, entries := range map[nativecommon.Capability][]string{
		nativecommon.CapabilityFiller:           roles.Fillers,
		nativecommon.CapabilityPoolUpdater:      roles.PoolUpdaters,
		nativecommon.CapabilityDistributor:      roles.Distributors,
		nativecommon.CapabilityLiquidityManager: roles.LiquidityManagers,
		nativecommon.CapabilityAdmin:            roles.Admins,
	} {
		addrs, err := config.ParseAddresses(entries)
		if err != nil {
			return nil, fmt.Errorf("roles %s: %w", capability, err)
		}
		for _, addr := range addrs {
			auth.Grant(capability, addr)
		}
	}
	return auth, nil
}

// advancePeriods rolls the throughput window forward once per UTC day.
func advancePeriods(ctx context.Context, engine *vault.Engine) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.SetPeriod(currentPeriod())
		}
	}
}

func currentPeriod() uint64 {
	return uint64(time.Now().Unix() / 86_400)
}

// Command trader runs the event-driven trading engine: a Gateway
// (simulation, replaying a CSV tick stream through a probabilistic
// matching venue; or live, against a brokerage REST+WebSocket API) feeds
// market data to a Strategy, whose signals pass through risk validation
// before submission, with fills flowing back through Portfolio and
// PerformanceTracker.
//
// Architecture:
//
//	cmd/trader/main.go        — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/tradingengine     — orchestrator: subscribes to Gateway, drives Strategy -> risk -> Portfolio
//	internal/strategy/crossover — reference moving-average crossover strategy
//	internal/gateway/sim        — CSV-driven simulation Gateway over internal/matching
//	internal/gateway/live       — brokerage Gateway over internal/exchange
//	internal/risk               — pre-trade validation: rate limit, notional cap, exposure cap
//	internal/portfolio          — cash and holdings ledger
//	internal/performance        — equity curve and realized PnL tracking
//	internal/audit              — append-only order event log
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradingcore/internal/audit"
	"tradingcore/internal/config"
	"tradingcore/internal/exchange"
	"tradingcore/internal/gateway"
	"tradingcore/internal/gateway/live"
	"tradingcore/internal/gateway/sim"
	"tradingcore/internal/marketdata"
	"tradingcore/internal/matching"
	"tradingcore/internal/performance"
	"tradingcore/internal/portfolio"
	"tradingcore/internal/risk"
	"tradingcore/internal/strategy"
	"tradingcore/internal/strategy/crossover"
	"tradingcore/internal/strategy/marketmaker"
	"tradingcore/internal/tradingengine"
)

const (
	exitOK           = 0
	exitConfigError  = 1
	exitRuntimeError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var cfgPath, logLevel string
	flag.StringVar(&cfgPath, "config", "configs/config.json", "path to the JSON configuration file")
	flag.StringVar(&logLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARNING, ERROR")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		return exitConfigError
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		return exitConfigError
	}

	logger := newLogger(cfg, logLevel)

	eng, auditLog, mdLogger, err := wire(cfg, logger)
	if err != nil {
		logger.Error("failed to wire engine", "error", err)
		return exitConfigError
	}
	if auditLog != nil {
		defer auditLog.Close()
	}
	if mdLogger != nil {
		defer mdLogger.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("trading engine started", "gateway_mode", cfg.Gateway.Mode, "strategy", cfg.Strategy.Type)

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("engine stopped with error", "error", err)
		return exitRuntimeError
	}

	logger.Info("trading engine shut down cleanly")
	return exitOK
}

func newLogger(cfg *config.Config, levelFlag string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(levelFlag)}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// wire builds the full Gateway -> Strategy -> risk -> Portfolio ->
// PerformanceTracker pipeline from cfg. Returns the audit log and the live
// market-data logger (either may be nil) so the caller can close them on
// shutdown.
func wire(cfg *config.Config, logger *slog.Logger) (*tradingengine.Engine, *audit.Log, *marketdata.Logger, error) {
	pf := portfolio.New(cfg.InitialCapitalDecimal())
	tracker := performance.New(cfg.InitialCapitalDecimal(), performance.Tick)

	var auditLog *audit.Log
	if cfg.Audit.Path != "" {
		var err error
		auditLog, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	riskCfg := risk.Config{
		MaxOrdersPerMinute: cfg.MaxOrdersPerMinute,
		MaxOrderValue:      cfg.MaxOrderValueDecimal(),
		MaxPositionSize:    cfg.MaxPositionSizeDecimal(),
	}
	riskMgr := risk.New(pf, riskCfg, logger)

	strat, err := buildStrategy(cfg.Strategy)
	if err != nil {
		return nil, nil, nil, err
	}

	gw, mdLogger, err := buildGateway(cfg, logger, auditLog)
	if err != nil {
		return nil, nil, nil, err
	}

	eng := tradingengine.New(gw, []strategy.Strategy{strat}, pf, riskMgr, tracker, logger)
	return eng, auditLog, mdLogger, nil
}

func buildStrategy(cfg config.StrategyConfig) (strategy.Strategy, error) {
	switch cfg.Type {
	case "crossover":
		return crossover.New(crossover.Config{
			ShortWindow: intParam(cfg.Params, "short_window", 5),
			LongWindow:  intParam(cfg.Params, "long_window", 20),
			Quantity:    int64(intParam(cfg.Params, "quantity", 1)),
		}), nil
	case "marketmaker":
		return marketmaker.New(marketmaker.Config{
			Gamma:            floatParam(cfg.Params, "gamma", 0.1),
			Sigma:            floatParam(cfg.Params, "sigma", 0.02),
			K:                floatParam(cfg.Params, "k", 1.5),
			T:                floatParam(cfg.Params, "t", 1.0),
			DefaultSpreadBps: intParam(cfg.Params, "default_spread_bps", 10),
			Quantity:         int64(intParam(cfg.Params, "quantity", 1)),
			MaxPosition:      int64(intParam(cfg.Params, "max_position", 100)),

			FlowWindow:              durationParam(cfg.Params, "flow_window_seconds", 60),
			FlowToxicityThreshold:   floatParam(cfg.Params, "flow_toxicity_threshold", 0.6),
			FlowCooldownPeriod:      durationParam(cfg.Params, "flow_cooldown_seconds", 120),
			FlowMaxSpreadMultiplier: floatParam(cfg.Params, "flow_max_spread_multiplier", 3.0),
		}), nil
	default:
		return nil, fmt.Errorf("unknown strategy.type %q", cfg.Type)
	}
}

func intParam(params map[string]interface{}, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func floatParam(params map[string]interface{}, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

func durationParam(params map[string]interface{}, key string, defSeconds int) time.Duration {
	return time.Duration(intParam(params, key, defSeconds)) * time.Second
}

// buildGateway constructs the Gateway for cfg.Gateway.Mode. It also returns
// the live market-data logger when one was built (simulation mode never
// produces one), so the caller can close it on shutdown.
func buildGateway(cfg *config.Config, logger *slog.Logger, auditLog *audit.Log) (gateway.Gateway, *marketdata.Logger, error) {
	switch cfg.Gateway.Mode {
	case "simulation":
		reader, err := marketdata.NewReader(cfg.Gateway.CSVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open market data csv: %w", err)
		}
		engine := matching.New(0.05, 0.2, 1)
		gw := sim.New(reader, engine, logger)
		if auditLog != nil {
			gw.AttachAudit(auditLog)
		}
		return gw, nil, nil

	case "live":
		auth := exchange.NewAuth(exchange.Credentials{
			APIKey:     cfg.Credentials.APIKey,
			Secret:     cfg.Credentials.Secret,
			Passphrase: cfg.Credentials.Passphrase,
		})
		rl := exchange.NewRateLimiter(exchange.DefaultRateLimiterConfig())
		client := exchange.NewClient(exchange.Config{BaseURL: cfg.Exchange.BaseURL, DryRun: cfg.Exchange.DryRun}, auth, rl, logger)
		marketFeed := exchange.NewMarketFeed(cfg.Exchange.WSMarketURL, logger)
		userFeed := exchange.NewUserFeed(cfg.Exchange.WSUserURL, auth, logger)
		gw := live.New(client, marketFeed, userFeed, logger)
		if auditLog != nil {
			gw.AttachAudit(auditLog)
		}

		var mdLogger *marketdata.Logger
		if cfg.Gateway.DataDir != "" {
			mdLogger = marketdata.NewLogger(cfg.Gateway.DataDir)
			gw.AttachMarketLogger(mdLogger)
		}

		if err := gw.Subscribe(cfg.Gateway.Symbols); err != nil {
			return nil, nil, fmt.Errorf("subscribe symbols: %w", err)
		}
		return gw, mdLogger, nil

	default:
		return nil, nil, fmt.Errorf("unknown gateway.mode %q", cfg.Gateway.Mode)
	}
}

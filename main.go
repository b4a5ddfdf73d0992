package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abl-archipelago/bridge/ap"
	"github.com/abl-archipelago/bridge/api"
	"github.com/abl-archipelago/bridge/config"
	"github.com/abl-archipelago/bridge/game/checks"
	"github.com/abl-archipelago/bridge/game/flags"
	"github.com/abl-archipelago/bridge/game/items"
	"github.com/abl-archipelago/bridge/game/progress"
	"github.com/abl-archipelago/bridge/journal"
	"github.com/abl-archipelago/bridge/prompt"
	"github.com/abl-archipelago/bridge/scheduler"
	"github.com/abl-archipelago/bridge/storage"
	"github.com/abl-archipelago/bridge/watcher"
	"go.uber.org/zap"
)

const gameName = "A Bug's Life"

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Client.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Data directory ----
	files, err := storage.New(cfg.Client.DataDir, logger)
	if err != nil {
		log.Fatalf("data dir: %v", err)
	}
	logger.Info("using data directory", zap.String("dir", files.Dir()))

	// ---- Login ----
	// Re-prompt until the server accepts the slot. A refused handshake is
	// operator error (wrong slot or password); anything else is network
	// trouble and also worth a retry with corrected input.
	p := prompt.New(os.Stdin, os.Stdout)
	var session *ap.Client
	var creds prompt.Credentials
	for {
		creds, err = p.Credentials()
		if err != nil {
			log.Fatalf("login input: %v", err)
		}
		session, err = ap.Connect(ap.LoginOptions{
			Address:  creds.Address,
			Game:     gameName,
			Slot:     creds.Slot,
			Password: creds.Password,
		}, logger)
		if err == nil {
			break
		}
		if errors.Is(err, ap.ErrRefused) {
			fmt.Println("Login refused:", err)
		} else {
			fmt.Println("Connection failed:", err)
		}
		fmt.Println()
	}
	defer session.Close()

	// ---- Session identity guard ----
	identity := storage.SessionIdentity(session.SeedName(), creds.Slot, creds.Address)
	fresh := files.ResetIfChanged(identity)

	// ---- Slot options ----
	flagSet := flags.Project(session.SlotData(), logger)
	if err := flagSet.WriteFile(files.Path(storage.FlagFile)); err != nil {
		logger.Warn("failed to write option flag file", zap.Error(err))
	}

	// ---- Upgrade state ----
	prog := progress.New(files.Path(storage.BerryFile), files.Path(storage.SeedFile), logger)
	if !fresh {
		prog.LoadBerries()
		prog.LoadSeeds()
	}

	// ---- Event journal ----
	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			logger.Warn("journal unavailable, continuing without it", zap.Error(err))
			jnl = nil
		} else {
			defer jnl.Stop()
		}
	}
	var itemRec items.Recorder
	var checkRec checks.Recorder
	if jnl != nil {
		itemRec = jnl
		checkRec = jnl
	}

	// ---- Item engine ----
	// Live deliveries are registered before the backlog replay; the engine's
	// applied-count makes the overlap between the two paths harmless.
	engine := items.NewEngine(prog, files, itemRec, logger)
	session.SetItemHandler(engine.HandleDelivery)
	engine.ReplayBacklog(session)

	// ---- Check reporter ----
	reporter := checks.NewReporter(session, flagSet, cfg.Client.ReportRPS, cfg.Client.ReportBurst, checkRec, logger)

	// ---- Trigger watcher ----
	w, err := watcher.New(files.Path(storage.TriggerFile), reporter.HandleLines, logger)
	if err != nil {
		log.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker("trigger_sweep", cfg.Watcher.SweepInterval, w.Drain)
	// Cheap no-op when nothing is pending; catches deliveries whose
	// callback was missed.
	sched.AddTicker("item_resync", 30*time.Second, func() {
		engine.ReplayBacklog(session)
	})

	// ---- Status API ----
	if cfg.Status.Port > 0 {
		h := api.NewHandler(identity, flagSet, engine, prog, jnl, sched, logger)
		r := h.Router(cfg.Status.RateLimitRPS, cfg.Status.RateLimitBurst)
		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Status.Port)
		go func() {
			logger.Info("status API listening", zap.String("addr", addr))
			if err := r.Run(addr); err != nil {
				logger.Warn("status API stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("bridge running",
		zap.String("slot", creds.Slot),
		zap.String("seed", session.SeedName()))
	fmt.Println("Connected. Waiting for game events; press Ctrl+C to quit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/notepid/lapgame/internal/account"
	"github.com/notepid/lapgame/internal/bot"
	"github.com/notepid/lapgame/internal/chat"
	"github.com/notepid/lapgame/internal/config"
	"github.com/notepid/lapgame/internal/db"
	"github.com/notepid/lapgame/internal/node"
	"github.com/notepid/lapgame/internal/reward"
	"github.com/notepid/lapgame/internal/server"
	"github.com/notepid/lapgame/internal/spam"
	"github.com/notepid/lapgame/internal/storage"
	"github.com/notepid/lapgame/internal/terminal"
	"github.com/notepid/lapgame/internal/user"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Open database
	database, err := db.Open(cfg.Paths.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	log.Printf("Database opened: %s", cfg.Paths.Database)

	settings, err := database.GetSettings()
	if err != nil {
		log.Fatalf("Failed to load server settings: %v", err)
	}
	log.Printf("Starting %s (operator: %s)", settings.Name, settings.Operator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Account store and its snapshot backend
	backend, closeBackend, err := storage.Open(ctx, cfg.Storage, database.DB)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer closeBackend()

	accounts := account.NewStore(cfg.Game.Rules())
	persister := storage.NewPersister(accounts, backend, cfg.Storage.FlushInterval.D())
	if restored, err := persister.Restore(ctx); err != nil {
		log.Printf("Storage: WARNING: durability at risk: %v", err)
		log.Printf("Storage: starting with no accounts; the %s snapshot is left untouched and nothing is saved until restart", cfg.Storage.Backend)
	} else {
		log.Printf("Restored %d accounts from %s storage", restored, cfg.Storage.Backend)
	}

	// Game services
	userRepo := user.NewRepo(database.DB)
	chatBroker := chat.NewBroker()
	guard := spam.NewGuard(cfg.Game.SpamGuard())

	var windows *reward.Windows
	if cfg.Game.RewardWindow.Enabled {
		windows = reward.NewWindows(cfg.Game.Window())
	}
	engine := bot.NewEngine(accounts, guard, cfg.Game.Bot(), bot.Options{
		Windows:  windows,
		Notifier: chatBroker,
	})

	scheduler := reward.NewScheduler(accounts, chatBroker, cfg.Game.Reward())
	scheduler.OnTick(func(now time.Time) {
		if n := guard.Sweep(now); n > 0 {
			log.Printf("Spam: released %d idle senders", n)
		}
	})

	var background sync.WaitGroup
	run := func(fn func(context.Context)) {
		background.Add(1)
		go func() {
			defer background.Done()
			fn(ctx)
		}()
	}
	run(persister.Run)
	run(scheduler.Run)
	if windows != nil {
		run(func(ctx context.Context) { windows.RunWindows(ctx, chatBroker, chatBroker) })
	}

	// Create node manager
	nodeMgr := node.NewManager(cfg.Server.MaxSessions)

	// handleConnection wires up a new session.
	handleConnection := func(term *terminal.Terminal, remoteAddr string) {
		nodeID, ok := nodeMgr.Acquire()
		if !ok {
			term.SendLn("Sorry, the track is full. Please try again later.")
			term.Close()
			return
		}

		n := node.NewNode(nodeID, term, remoteAddr)
		n.Users = userRepo
		n.Broker = chatBroker
		n.Handler = engine
		n.Settings = database

		nodeMgr.Add(n)
		n.Run(ctx, nodeMgr)
	}

	// --- Telnet server ---
	telnetListener := server.NewListener(cfg.Server.TelnetPort, func(tc *server.TelnetConn) {
		if err := tc.Negotiate(); err != nil {
			log.Printf("Telnet negotiation error from %s: %v", tc.RemoteAddr(), err)
			tc.Close()
			return
		}

		term := terminal.New(tc, tc.Width, tc.Height, tc.ANSICapable)
		term.SetEchoControl(tc.SetEcho)

		handleConnection(term, tc.RemoteAddr().String())
	})

	go func() {
		if err := telnetListener.ListenAndServe(); err != nil {
			log.Fatalf("Telnet server error: %v", err)
		}
	}()

	// --- Health server ---
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ok\nsessions %d/%d\naccounts %d\n", nodeMgr.Count(), nodeMgr.Max(), accounts.Len())
		if persister.Held() {
			_, _ = fmt.Fprintln(w, "storage held: snapshot could not be restored")
		}
	})
	healthMux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, info := range nodeMgr.ListInfo() {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", info.ID, info.UserName, info.AccountID, info.Room, info.Remote)
		}
	})

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Health server error: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	fmt.Printf("\n%s is running\n", settings.Name)
	fmt.Printf("  Telnet:   port %d\n", cfg.Server.TelnetPort)
	fmt.Printf("  Health:   port %d\n", cfg.Server.HealthPort)
	fmt.Printf("  Sessions: 0/%d\n", cfg.Server.MaxSessions)
	fmt.Printf("  Storage:  %s\n", cfg.Storage.Backend)
	fmt.Println("\nPress Ctrl+C to shut down.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Printf("Received signal %v, shutting down...", sig)

	telnetListener.Close()
	nodeMgr.Broadcast("Server is shutting down NOW. Your score is saved. Goodbye!")
	nodeMgr.DisconnectAll()

	// Stop the schedulers; the persister writes its final snapshot on the
	// way out.
	cancel()
	background.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Health server shutdown: %v", err)
	}

	log.Printf("%s shut down complete.", settings.Name)
}

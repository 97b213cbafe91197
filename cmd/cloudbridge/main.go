// Command cloudbridge receives point cloud frames over UDP (or from a PCAP
// capture), admits at most one frame at a time for decoding, and streams the
// resulting geometry to renderers over gRPC.
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

	"tailscale.com/tsweb"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/network"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/pipeline"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/visualiser"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/config"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/diagdb"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to a bridge JSON config (defaults apply when empty)")
	pcapFile   = flag.String("pcap", "", "Replay frames from a PCAP capture instead of listening on UDP")
	pcapPort   = flag.Int("pcap-port", 5700, "UDP destination port of frame datagrams inside the capture")
	noDebug    = flag.Bool("no-debug", false, "Disable the debug HTTP server")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}
	log.Printf("Starting %s", version.String())

	cfg := config.EmptyBridgeConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadBridgeConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if flag.NArg() > 0 {
		if flag.Arg(0) != "migrate" {
			log.Fatalf("unknown command %q; %s", flag.Arg(0), migrateUsage)
		}
		path := cfg.GetStatsDBPath()
		if path == "" {
			log.Fatalf("migrate needs stats_db_path in the config")
		}
		db, err := diagdb.Open(path)
		if err != nil {
			log.Fatalf("failed to open diagnostics database: %v", err)
		}
		defer db.Close()
		if err := runMigrate(db, flag.Args()[1:], os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	anchor, err := visualiser.NewAnchorProvider(cfg.GetAnchorMode(),
		visualiser.PoseFromArrays(cfg.GetAnchorPosition(), cfg.GetAnchorOrientation()))
	if err != nil {
		log.Fatalf("invalid anchor configuration: %v", err)
	}

	visCfg := visualiser.DefaultConfig()
	visCfg.ListenAddr = cfg.GetGRPCListen()
	visCfg.ClientBuffer = cfg.GetClientBuffer()
	visCfg.StartVisible = cfg.GetStartEnabled()
	publisher := visualiser.NewPublisher(visCfg)

	dc := cfg.GetDefaultColor()
	p := pipeline.New(pipeline.Config{
		DefaultColor:  l2frames.Color{R: dc[0], G: dc[1], B: dc[2], A: dc[3]},
		UsePool:       cfg.GetPoolBuffers(),
		TickInterval:  cfg.GetTickInterval(),
		StatsInterval: cfg.GetStatsInterval(),
		StartEnabled:  cfg.GetStartEnabled(),
	}, publisher, anchor)

	var diag *diagdb.DB
	if path := cfg.GetStatsDBPath(); path != "" {
		diag, err = diagdb.Open(path)
		if err != nil {
			log.Fatalf("failed to open diagnostics database: %v", err)
		}
		defer diag.Close()
	}

	renderServer := visualiser.NewRenderServer(publisher, visCfg)
	if err := renderServer.Start(); err != nil {
		log.Fatalf("failed to start render server: %v", err)
	}
	defer renderServer.Stop()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// consumer tick loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("pipeline stopped: %v", err)
		}
	}()

	// frame source
	var listener *network.UDPListener
	if *pcapFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := network.ReplayPCAP(ctx, *pcapFile, *pcapPort, p)
			if err != nil && err != context.Canceled {
				log.Printf("PCAP replay failed: %v", err)
				return
			}
			log.Printf("PCAP replay finished: packets=%d frames=%d invalid=%d in %v",
				stats.Packets, stats.Frames, stats.Invalid, stats.Elapsed)
		}()
	} else {
		listener = network.NewUDPListener(network.UDPListenerConfig{
			Address:     cfg.GetUDPListen(),
			RcvBuf:      cfg.GetUDPRcvBuf(),
			LogInterval: cfg.GetStatsInterval(),
			Handler:     p,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("UDP listener stopped: %v", err)
			}
		}()
	}

	if diag != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			diag.RunRecorder(ctx, diagdb.RecorderConfig{
				Interval:  cfg.GetStatsRecordInterval(),
				Retention: cfg.GetStatsRetention(),
			}, func() diagdb.Snapshot {
				return snapshot(p, listener)
			})
		}()
	}

	if !*noDebug {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, cfg.GetDebugListen(), p, diag)
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func snapshot(p *pipeline.Pipeline, listener *network.UDPListener) diagdb.Snapshot {
	s := p.Stats()
	snap := diagdb.Snapshot{
		RecordedAt:      time.Now(),
		State:           s.Gate.State.String(),
		Enabled:         s.Gate.Enabled,
		Accepted:        s.Gate.Accepted,
		Published:       s.Gate.Published,
		DroppedBusy:     s.Gate.DroppedBusy,
		DroppedDisabled: s.Gate.DroppedDisabled,
		Rejected:        s.Gate.Rejected,
		Truncated:       s.Truncated,
		ColorDefaulted:  s.ColorDefaulted,
		LastPoints:      s.Publisher.LastPoints,
	}
	if listener != nil {
		ls := listener.Stats()
		snap.Datagrams = ls.Datagrams
		snap.InvalidDatagrams = ls.Invalid
	}
	return snap
}

func serveDebug(ctx context.Context, addr string, p *pipeline.Pipeline, diag *diagdb.DB) {
	mux := http.NewServeMux()
	tsweb.Debugger(mux).KV("Version", version.String())
	p.AttachAdminRoutes(mux)
	if diag != nil {
		diag.AttachAdminRoutes(mux)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start debug server: %v", err)
		}
	}()
	log.Printf("debug server listening on %s", addr)

	<-ctx.Done()
	log.Println("shutting down debug server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
	}
}

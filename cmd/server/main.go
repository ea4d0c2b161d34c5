package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"

	"outerspace/internal/config"
	"outerspace/internal/observability"
	"outerspace/internal/rules"
	"outerspace/internal/scheduler"
	"outerspace/internal/spectator"
	"outerspace/internal/transport"
	"outerspace/internal/world"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	appCfg := config.Load()

	bindReq := flag.Int("bind-req", appCfg.Network.BindRequest, "request/reply port")
	bindPub := flag.Int("bind-pub", appCfg.Network.BindPublish, "publish port")
	archivePush := flag.String("archive-push", appCfg.Network.ArchivePush, "optional score-archive sink address (host:port)")
	seed := flag.Int64("seed", appCfg.World.Seed, "RNG seed, 0 derives one from the clock")
	boardSize := flag.Int("board-size", appCfg.World.BoardSize, "board side length")
	maxTargets := flag.Int("max-targets", appCfg.World.MaxTargets, "target population cap")
	initialTargets := flag.Int("initial-targets", appCfg.World.InitialTargets, "targets placed at startup")
	debugAddr := flag.String("bind-debug", appCfg.Observability.DebugAddr, "loopback-only pprof/metrics/healthz address")
	spectatorAddr := flag.String("bind-ws", appCfg.Observability.SpectatorAddr, "spectator HTTP/WebSocket bridge address")
	disableSpectator := flag.Bool("disable-spectator", false, "disable the spectator HTTP/WebSocket bridge")
	flag.Parse()

	log := slog.Default()

	rng := scheduler.NewRNG(*seed)
	worldCfg := world.Config{BoardSize: *boardSize, MaxTargets: *maxTargets, InitialTargets: *initialTargets}
	w := world.New(worldCfg, rng, time.Now())

	reqLn, err := net.Listen("tcp", fmt.Sprintf(":%d", *bindReq))
	if err != nil {
		log.Error("failed to bind request/reply port", "error", pkgerrors.Wrap(err, "bind request port"))
		os.Exit(1)
	}
	pubLn, err := net.Listen("tcp", fmt.Sprintf(":%d", *bindPub))
	if err != nil {
		log.Error("failed to bind publish port", "error", pkgerrors.Wrap(err, "bind publish port"))
		os.Exit(1)
	}

	pubServer := transport.NewPublishServer(pubLn)

	var archive *transport.ArchiveClient
	if *archivePush != "" {
		archive = transport.NewArchiveClient(*archivePush, log)
	}

	spectatorCfg := spectator.Config{
		Enabled:    !*disableSpectator,
		ListenAddr: *spectatorAddr,
		BoardSize:  *boardSize,
		MaxTargets: *maxTargets,
	}
	spectatorSrv := spectator.NewServer(spectatorCfg, log)

	fanOut := scheduler.FanOut{pubServer}
	if spectatorSrv != nil {
		fanOut = append(fanOut, spectatorSrv.Hub())
	}

	var archivePusher scheduler.ArchivePusher
	if archive != nil {
		archivePusher = archive
	}

	sched := scheduler.New(w, rules.DefaultConfig(), scheduler.DefaultConfig(), rng, fanOut, archivePusher, log)

	reqServer := transport.NewRequestServer(reqLn, func(line string) (string, func()) {
		return sched.Submit(transport.DecodeCommand(line))
	})
	sched.SetStopAccepting(func() { reqServer.Close() })

	debugSrv := observability.NewServer(observability.Config{Enabled: *debugAddr != "", ListenAddr: *debugAddr}, log)

	go func() {
		if err := reqServer.Serve(); err != nil {
			log.Error("request server stopped", "error", err)
		}
	}()
	go func() {
		if err := pubServer.Serve(); err != nil {
			log.Error("publish server stopped", "error", err)
		}
	}()
	if debugSrv != nil {
		debugSrv.Start()
	}
	if spectatorSrv != nil {
		spectatorSrv.Start()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("signal received, shutting down")
		sched.Shutdown()
	}()

	log.Info("outerspace server ready",
		"request_port", *bindReq,
		"publish_port", *bindPub,
		"board_size", *boardSize,
		"max_targets", *maxTargets,
	)

	exitCode := sched.Run(scheduler.StdinQuitInput)

	reqServer.Close()
	pubServer.Close()
	if archive != nil {
		archive.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if debugSrv != nil {
		debugSrv.Stop(ctx)
	}
	if spectatorSrv != nil {
		spectatorSrv.Stop(ctx)
	}

	os.Exit(exitCode)
}

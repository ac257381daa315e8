package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/content"
	"github.com/DoyleJ11/bluffparty/internal/directory"
	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/logging"
	"github.com/DoyleJ11/bluffparty/internal/node"
	"github.com/DoyleJ11/bluffparty/internal/peer"
	"github.com/DoyleJ11/bluffparty/internal/store"
	"github.com/DoyleJ11/bluffparty/internal/store/redisstore"
	"github.com/DoyleJ11/bluffparty/internal/store/sqlstore"
	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/DoyleJ11/bluffparty/internal/transport/wsnet"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDirectoryPort = 8080
	shutdownTimeout      = 5 * time.Second
)

func serveDirectory(ctx context.Context, cfg *Config) (err error) {
	log, err := logging.New(cfg.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	port := cfg.port
	if port == 0 {
		port = defaultDirectoryPort
	}
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(port)),
		Handler:           directory.NewAPI(directory.NewRegistry(ctx), log).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("directory listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	switch cfg.store {
	case "redis":
		return redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
	case "postgres":
		return sqlstore.Open(cfg.postgresDSN)
	default:
		return store.NewMemory(), nil
	}
}

func hostRoom(ctx context.Context, cfg *Config) error {
	dir := directory.NewClient(cfg.directoryURL, nil)
	code, err := dir.Allocate(ctx)
	if err != nil {
		return fmt.Errorf("allocate room: %w", err)
	}
	fmt.Printf("Room %s  (QR: %s/rooms/%s/qr.png)\n", code, cfg.directoryURL, code)
	return play(ctx, cfg, dir, code, game.Player{ID: uuid.NewString(), IsHost: true})
}

func joinRoom(ctx context.Context, cfg *Config, code string) error {
	dir := directory.NewClient(cfg.directoryURL, nil)
	return play(ctx, cfg, dir, code, game.Player{ID: uuid.NewString()})
}

func resumeRoom(ctx context.Context, cfg *Config) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	creds, err := st.LoadCredentials(ctx, cfg.profile)
	if cerr := st.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no stored room for profile %q", cfg.profile)
	}
	if err != nil {
		return err
	}
	cfg.name, cfg.avatar = creds.Name, creds.Avatar
	dir := directory.NewClient(cfg.directoryURL, nil)
	return play(ctx, cfg, dir, creds.RoomCode, game.Player{ID: creds.PlayerID, IsHost: creds.IsHost})
}

func play(ctx context.Context, cfg *Config, dir *directory.Client, code string, self game.Player) (err error) {
	log, err := logging.New(cfg.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	self.Name, self.Avatar = cfg.name, cfg.avatar

	var producer content.Producer
	if cfg.contentURL != "" {
		producer = content.NewRemote(cfg.contentURL, nil, cfg.contentTimeout)
	}

	n := node.New(node.Config{
		Room:              code,
		Self:              self,
		Network:           wsnet.New(dir, cfg.listenAddr(), cfg.advertiseHost, log),
		Store:             st,
		Profile:           cfg.profile,
		Producer:          producer,
		Logger:            log,
		HeartbeatInterval: cfg.heartbeat,
		PlayerTimeout:     cfg.playerTimeout,
		RecoveryWindow:    cfg.recoveryWindow,
		HostProbe:         cfg.hostProbe,
	})

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(pctx)
	g.Go(func() error {
		defer cancel()
		return n.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return newREPL(n, self.ID, os.Stdin, os.Stdout).Run(gctx)
	})

	err = g.Wait()
	switch {
	case errors.Is(err, transport.ErrRoomNotFound):
		return fmt.Errorf("room %s does not exist", code)
	case errors.Is(err, peer.ErrEvicted):
		return errors.New("you were removed from the room")
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

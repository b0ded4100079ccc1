package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"awgobfs/internal/config"
	"awgobfs/internal/metrics"
	"awgobfs/internal/obfs"
	"awgobfs/internal/transport/awg"
)

func (a *app) sendCmd() *cobra.Command {
	var (
		cfgPath  string
		target   string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the profile's preamble to a UDP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runSend(ctx, cfgPath, target, interval, !cmd.Flags().Changed("log-level"))
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "profile file")
	cmd.Flags().StringVar(&target, "to", "", "destination host:port")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat interval, 0 sends once")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// runSend sends the preamble until ctx is done. With profileLevel set the
// profile's log_level drives the logger, including across reloads.
func (a *app) runSend(ctx context.Context, cfgPath, target string, interval time.Duration, profileLevel bool) error {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", target, err)
	}

	rc, err := config.NewReloadable(cfgPath, a.logger)
	if err != nil {
		return err
	}
	defer rc.Close()

	if profileLevel {
		a.applyLogLevel(rc.Get().LogLevel)
	}

	network := "udp6"
	if addr.IP.To4() != nil {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	peer := &awg.Peer{}
	newSender := func(cfg *config.Config) (*awg.JunkSender, error) {
		p, err := obfs.NewProfile(cfg)
		if err != nil {
			return nil, err
		}
		return awg.NewJunkSender(conn, p.NewObfuscator(), peer, a.logger), nil
	}

	var sender atomic.Pointer[awg.JunkSender]
	s, err := newSender(rc.Get())
	if err != nil {
		return err
	}
	sender.Store(s)
	rc.Watch(func(_, cfg *config.Config) {
		if profileLevel {
			a.applyLogLevel(cfg.LogLevel)
		}
		s, err := newSender(cfg)
		if err != nil {
			a.logger.Error("profile rebuild failed", zap.Error(err))
			return
		}
		if old := sender.Swap(s); old != nil {
			_ = old.Close()
		}
		a.logger.Info("profile swapped")
	})

	if listen := rc.Get().MetricsListen; listen != "" {
		srvCtx, stopSrv := context.WithCancel(ctx)
		srvDone := make(chan struct{})
		defer func() {
			stopSrv()
			<-srvDone
		}()
		go func() {
			defer close(srvDone)
			if err := metrics.NewServer(listen).ListenAndServe(srvCtx); err != nil {
				a.logger.Error("metrics server failed", zap.String("addr", listen), zap.Error(err))
			}
		}()
		a.logger.Info("metrics listening", zap.String("addr", listen))
	}

	for {
		n, err := sender.Load().SendPreamble(ctx, addr)
		switch {
		case errors.Is(err, awg.ErrClosed):
			// Swapped by a reload between Load and send.
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		}
		a.logger.Info("preamble sent", zap.Stringer("to", addr), zap.Int("packets", n))
		if interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (a *app) applyLogLevel(level string) {
	l, err := parseLogLevel(level)
	if err != nil {
		a.logger.Warn("ignoring profile log level", zap.String("log_level", level), zap.Error(err))
		return
	}
	a.level.SetLevel(l)
}

// Command cubesnake-server runs the authoritative game server: it loads
// configuration, wires up logging, and starts the HTTP/WebSocket
// transport over a RoomManager.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cubesnake.io/internal/config"
	"cubesnake.io/internal/room"
	"cubesnake.io/internal/transport"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr     string
		cfgFile  string
		logLevel string
		cubeN    int
		roundSec int
		tickRate int
	)

	root := &cobra.Command{
		Use:   "cubesnake-server",
		Short: "Authoritative server for cube-surface multiplayer snake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("cube-n") {
				cfg.DefaultCubeN = cubeN
			}
			if cmd.Flags().Changed("round-seconds") {
				cfg.DefaultRoundSeconds = roundSec
			}
			if cmd.Flags().Changed("tick-rate") {
				cfg.DefaultTickRate = tickRate
			}
			return serve(cfg)
		},
	}

	root.PersistentFlags().StringVar(&addr, "addr", "", "listen address, e.g. :8080")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (yaml/json/toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().IntVar(&cubeN, "cube-n", 0, "default cube subdivision for new rooms")
	root.PersistentFlags().IntVar(&roundSec, "round-seconds", 0, "default round length in seconds for new rooms")
	root.PersistentFlags().IntVar(&tickRate, "tick-rate", 0, "default simulation ticks per second for new rooms")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	})

	return root
}

func serve(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)
	log.WithField("version", version).Info("starting cubesnake-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := room.NewRealClock()
	manager, group := room.NewRoomManager(ctx, log.WithField("component", "room_manager"), clock, cfg.RoomDefaults())

	transport.Version = version
	srv := transport.NewServer(manager, log.WithField("component", "transport"))
	if err := srv.Start(cfg.Addr); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown error")
	}

	return group.Wait()
}

func newLogger(level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return logrus.NewEntry(log)
}

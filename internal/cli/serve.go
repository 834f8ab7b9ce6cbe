package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bergbridge/internal/config"
	"bergbridge/internal/logger"
	"bergbridge/internal/network"
	"bergbridge/internal/payload"
	"bergbridge/internal/printer"
	"bergbridge/internal/rle"
	"bergbridge/internal/router"
	"bergbridge/internal/spool"
	"bergbridge/internal/types"

	"github.com/spf13/cobra"
)

var quiet bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		closeLog, err := setupLogging(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		logger.Info("----------------------------------------")
		logger.Info("bergbridge initializing...")

		b, err := newBridge(cfg)
		if err != nil {
			logger.Error("failed to init bridge: %v", err)
			return err
		}
		defer b.Close()

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- b.Server.Start()
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErr:
			if err != nil {
				logger.Error("server error: %v", err)
				return fmt.Errorf("server error: %w", err)
			}
		case <-sigChan:
			logger.Info("Shutting down...")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", config.DefaultListenAddr, "address to listen on")
	serveCmd.Flags().String("spool-dir", "", "directory for printed bitmaps (empty disables printing)")
	serveCmd.Flags().BoolVar(&quiet, "quiet", false, "Disable info logging (log only errors)")
	bindFlag(serveCmd, "listen_addr", "listen")
	bindFlag(serveCmd, "spool_dir", "spool-dir")
	rootCmd.AddCommand(serveCmd)
}

func setupLogging(cfg *config.Config) (func(), error) {
	var w io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, logFile)
		closeFn = func() { logFile.Close() }
	}
	logger.Setup(w)

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		closeFn()
		return nil, err
	}
	if quiet {
		level = logger.LevelError
	}
	logger.SetLevel(level)
	return closeFn, nil
}

// bridge is the wired process: printer device behind the router behind the server.
type bridge struct {
	Router *router.Manager
	Server *network.Server
}

func newBridge(cfg *config.Config) (*bridge, error) {
	var sink printer.Sink
	if cfg.SpoolDir != "" {
		fs, err := spool.NewFileSink(cfg.SpoolDir)
		if err != nil {
			return nil, err
		}
		sink = fs
		logger.Info("spooling prints to %s", cfg.SpoolDir)
	} else {
		logger.Warn("no spool_dir configured; print commands will answer busy")
	}

	device := printer.New(sink, payload.Decoder{DefaultWidth: cfg.PrintWidth}, rle.Decompressor{})

	mgr := router.NewManager(cfg.QueueSize, cfg.HandleTimeout)
	mgr.Register(types.DeviceLittlePrinter, device)
	mgr.Start()

	return &bridge{
		Router: mgr,
		Server: network.NewServer(cfg.ListenAddr, mgr, cfg.MaxFrameSize),
	}, nil
}

func (b *bridge) Close() {
	if err := b.Server.Close(); err != nil {
		logger.Error("closing server: %v", err)
	}
	b.Router.Stop()
}

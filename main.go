package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/lorendsnow/fileserver/config"
	"github.com/lorendsnow/fileserver/logger"
	"github.com/lorendsnow/fileserver/server"
	"github.com/lorendsnow/fileserver/ui"
)

const usage = `filedrop -- send one file to a receiver over TCP

Usage:
  filedrop                               Pick a mode interactively
  filedrop serve [flags]                 Receive files into DATA_PATH
  filedrop send [flags] [file]           Send a file (no file: pick one)

Run "filedrop <command> -h" for the flags of each command.`

func main() {
	args := os.Args[1:]

	if len(args) == 0 {
		mode, err := ui.ChooseMode()
		if err != nil {
			if errors.Is(err, ui.ErrCancelled) {
				return
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		switch mode {
		case ui.ModeServe:
			os.Exit(runServe(nil))
		case ui.ModeSend:
			os.Exit(runSend(nil))
		}
		return
	}

	switch args[0] {
	case "serve", "receive":
		os.Exit(runServe(args[1:]))
	case "send":
		os.Exit(runSend(args[1:]))
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s\n", args[0], usage)
		os.Exit(1)
	}
}

// loadConfig reads path. A missing file is only an error when the user
// named it explicitly; unknown keys are reported and ignored.
func loadConfig(path string, explicit bool) (config.Config, error) {
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return config.Default(), nil
	case errors.Is(err, config.ErrUnknownKey):
		fmt.Fprintln(os.Stderr, "Warning:", err)
		return cfg, cfg.Validate()
	}
	return cfg, err
}

func isSet(f *flag.FlagSet, name string) bool {
	set := false
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

func runServe(args []string) int {
	f := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := f.String("config", config.DefaultFile, "TOML config file")
	dir := f.String("dir", "", "directory to save files in (overrides DATA_PATH)")
	host := f.String("host", "", "listen host (overrides HOST)")
	port := f.Int("port", -1, "listen port (overrides PORT)")
	logFile := f.String("log", "", "log file (overrides LOG_FILE)")
	f.Parse(args)

	cfg, err := loadConfig(*cfgPath, isSet(f, "config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	if *dir != "" {
		cfg.DataPath = *dir
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port >= 0 {
		cfg.Port = *port
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	l, closer, err := logger.Open("FileServer", cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, l)
	if err := srv.Listen(); err != nil {
		l.Error("couldn't start server", "err", err)
		fmt.Fprintf(os.Stderr, "Cannot bind %s: %v\n", cfg.Address(), err)
		return 1
	}

	dataPath, _ := filepath.Abs(cfg.DataPath)
	logTarget := cfg.LogFile
	if logTarget == "" {
		logTarget = "stderr"
	}
	fmt.Println(ui.Banner(srv.Addr().String(), dataPath, logTarget))
	fmt.Println("Waiting for transfers... (Ctrl-C to stop)")

	if err := srv.Serve(ctx); err != nil {
		l.Error("server stopped", "err", err)
		return 1
	}
	return 0
}

// dialAddress turns a listen address into one a sender can reach.
func dialAddress(cfg config.Config) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

func runSend(args []string) int {
	f := flag.NewFlagSet("send", flag.ExitOnError)
	cfgPath := f.String("config", config.DefaultFile, "TOML config file for the default address")
	base := f.String("base", ".", "directory the file name is relative to")
	addr := f.String("addr", "", "receiver host:port (default from config)")
	plain := f.Bool("plain", false, "plain text progress instead of the terminal UI")
	f.Parse(args)

	cfg, err := loadConfig(*cfgPath, isSet(f, "config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	filename := f.Arg(0)
	target := *addr
	if filename == "" {
		if filename, err = ui.PickFile(*base); err != nil {
			return exitOnPrompt(err)
		}
		if target == "" {
			if target, err = ui.PromptAddress(dialAddress(cfg)); err != nil {
				return exitOnPrompt(err)
			}
		}
	}
	if target == "" {
		target = dialAddress(cfg)
	}

	level := "warn"
	if *plain {
		level = "info"
	}
	l, err := logger.New("FileClient", os.Stderr, level, "text")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := server.NewClient(*base, target,
		server.WithLogger(l),
		server.WithDialTimeout(cfg.DialTimeout.Duration),
	)
	if err := client.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot connect: %v\n", err)
		return 1
	}
	defer client.Disconnect()

	var n int64
	if *plain {
		client.SetProgress(ui.NewPlainProgress(os.Stderr))
		n, err = client.SendFile(filename)
	} else {
		n, err = ui.RunSend(client, filename)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer failed: %v\n", err)
		return 1
	}

	if !*plain {
		fmt.Printf("%s sent successfully (%s)\n", filename, ui.FormatBytes(float64(n)))
	}
	return 0
}

func exitOnPrompt(err error) int {
	if errors.Is(err, ui.ErrCancelled) {
		return 0
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

// Command ptymuxd is the PTY multiplexer server: it owns one or more
// pseudo-terminals, spawns user programs attached to them, and multiplexes
// their byte streams over line-delimited JSON on its own standard streams
// (spec.md §1, §6). The controlling parent process sends commands on
// stdin and receives events on stdout; stderr carries diagnostics only.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sedwards2009/ptymuxd/internal/activity"
	"github.com/sedwards2009/ptymuxd/internal/config"
	"github.com/sedwards2009/ptymuxd/internal/nbio"
	"github.com/sedwards2009/ptymuxd/internal/protocol"
	"github.com/sedwards2009/ptymuxd/internal/registry"
	"github.com/sedwards2009/ptymuxd/internal/supervisor"
)

// setupLogger directs the standard logger at logPath, or at standard error
// when logPath is empty — adapted from the teacher's
// cmd/proctmux/main.go setupLogger, which this server also uses to keep
// stdout free for the wire protocol (spec.md §1: "diagnostic text is
// emitted on standard error and is not part of the protocol").
func setupLogger(logPath string) (*os.File, error) {
	if logPath == "" {
		log.SetOutput(os.Stderr)
		return nil, nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return f, nil
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "f", "", "path to config file (default: searches for ptymuxd.yaml in the current directory)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Reads line-delimited JSON commands on stdin, writes line-delimited JSON events on stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, cfgErr := config.Load(configFile)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "ptymuxd: failed to load config: %v\n", cfgErr)
		os.Exit(1)
	}

	logFile, err := setupLogger(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ptymuxd: failed to open log file %s: %v\n", cfg.LogFile, err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	log.Printf("ptymuxd starting, config: %+v", *cfg)

	sig := activity.New()
	reg := registry.New()
	emitter := protocol.NewEmitter(os.Stdout)
	dispatcher := protocol.NewDispatcherWithChunkSize(reg, emitter, sig, cfg.PTYChunkSize)
	control := nbio.NewLineReaderSize(os.Stdin, sig, cfg.ControlBufferSize)

	sup := supervisor.New(sig, control, dispatcher, reg, emitter)
	sup.Run()

	log.Printf("ptymuxd exiting cleanly")
	os.Exit(0)
}

// Command rflink-recv is a host-side CLI that listens for one payload over
// a stubbed link and prints it, the receive-side counterpart to
// rflink-send.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/gorflink/rflink"
	"github.com/gorflink/rflink/config"
	"github.com/gorflink/rflink/driver/stub"
)

func main() {
	cfgPath := flag.String("config", "", "path to a node YAML config file (optional)")
	from := flag.Uint("from", 0, "only accept frames from this sender (0 = any)")
	timeout := flag.Duration("timeout", 30*time.Second, "how long to wait before giving up")
	debug := flag.Bool("debug", false, "dump task pool status after the receive completes")
	flag.Parse()

	cfg := config.Default()
	cfg.Node.Address = 2
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("rflink-recv: %v", err)
		}
		cfg = loaded
	}

	link, err := rflink.Open(stub.New(), cfg)
	if err != nil {
		log.Fatalf("rflink-recv: open: %v", err)
	}

	rxCfg := rflink.RXConfig{HasTimeout: true, Timeout: *timeout}
	if *from != 0 {
		rxCfg.HasSender = true
		rxCfg.Sender = rflink.Address(*from)
	}

	payload, sender, err := link.Receive(rxCfg)
	if *debug {
		log.Print(link.DumpStatus())
	}
	if err != nil {
		log.Fatalf("rflink-recv: receive failed: %v", err)
	}
	log.Printf("rflink-recv: received %d bytes from %d: %q", len(payload), sender, payload)
}

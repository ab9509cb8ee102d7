// Command linktool generates and inspects link addresses offline.
//
// Link addresses are exchanged between peers out of band; this tool lets an
// operator mint an address without running a gateway, or check what a
// received address contains before loading it.
//
//	linktool generate --prefix=pqrstuv --seq=3
//	linktool inspect '{"hashtag":"pqrstuv3","maxTries":0,"timestamp":1724400000}'
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tst-race/mastodon-transport/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  linktool generate --prefix=<prefix> [--seq=<n>]")
	fmt.Println("  linktool inspect <address-json>")
}

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	prefix := fs.String("prefix", "pqrstuv", "Hashtag prefix")
	seq := fs.Uint64("seq", 0, "Sequence number appended to the prefix")
	fs.Parse(args)

	addr := transport.GenerateLinkAddress(*prefix, *seq)
	fmt.Println(addr.String())
}

func runInspect(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}

	addr, err := transport.ParseLinkAddress(args[0])
	if err != nil {
		fmt.Printf("Invalid address: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Hashtag:   %s\n", addr.Hashtag)
	fmt.Printf("Tag:       %s\n", addr.Tag())
	fmt.Printf("MaxTries:  %d\n", addr.MaxTries)
	if addr.Timestamp > 0 {
		created := time.Unix(int64(addr.Timestamp), 0).UTC()
		fmt.Printf("Created:   %s\n", created.Format(time.RFC3339))
	}
}

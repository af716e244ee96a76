package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"netbridge/client"
	"netbridge/config"
	"netbridge/errs"
	"netbridge/message"
	"netbridge/registry"
)

func main() {
	fs := flag.NewFlagSet("netbridge-call", flag.ExitOnError)
	configPath := fs.String("config", "", "JSON config file")
	target := fs.String("target", "", "bridge URL; when empty the server is discovered via etcd")
	etcd := fs.String("etcd", "", "comma-separated etcd endpoints")
	balancer := fs.String("balancer", "", "round_robin, weighted_random or consistent_hash")
	hashKey := fs.String("hash-key", "", "key for consistent_hash, e.g. the account pubkey")
	op := fs.String("op", "", "operation: "+opNames())
	body := fs.String("body", "{}", "JSON body, or @file to read it from a file, or @- for stdin")
	out := fs.String("out", "", "write a raw result to this file instead of stdout")
	debug := fs.Bool("debug", false, "log the call to stderr")
	_ = fs.Parse(os.Args[1:])

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fail(2, err)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			cfg.Client.Target = *target
		case "etcd":
			cfg.Etcd.Endpoints = strings.Split(*etcd, ",")
		case "balancer":
			cfg.Client.Balancer = *balancer
		case "hash-key":
			cfg.Client.HashKey = *hashKey
		}
	})
	if err := cfg.Validate(); err != nil {
		fail(2, err)
	}
	if !message.Op(*op).Valid() {
		fail(2, fmt.Errorf("unknown -op %q, want one of %s", *op, opNames()))
	}

	raw, err := readBody(*body)
	if err != nil {
		fail(2, err)
	}

	logger := zap.NewNop()
	if *debug {
		if logger, err = zap.NewDevelopment(); err != nil {
			fail(1, err)
		}
	}
	defer logger.Sync()

	cli, err := newClient(cfg, logger)
	if err != nil {
		fail(1, err)
	}

	res, err := cli.Do(context.Background(), message.Op(*op), raw)
	if err != nil {
		if e, ok := errs.As(err); ok {
			fmt.Fprintf(os.Stderr, "%s [%s]: %s\n", e.Name(), e.Code, e.Message)
			os.Exit(1)
		}
		fail(1, err)
	}

	if res.IsRaw() {
		if *out != "" {
			if err := os.WriteFile(*out, res.Bytes(), 0o644); err != nil {
				fail(1, err)
			}
			fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(res.Bytes()), *out)
			return
		}
		_, _ = os.Stdout.Write(res.Bytes())
		return
	}

	var pretty any
	if err := res.Decode(&pretty); err != nil {
		fail(1, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(pretty)
}

func newClient(cfg config.Config, logger *zap.Logger) (*client.Client, error) {
	if cfg.Client.Target != "" {
		return client.New(cfg.Client.Target, client.WithLogger(logger)), nil
	}
	if len(cfg.Etcd.Endpoints) == 0 {
		return nil, fmt.Errorf("either -target or -etcd is required")
	}

	timeout, _ := cfg.Etcd.Timeout()
	reg, err := registry.NewEtcdRegistry(cfg.Etcd.Endpoints, timeout, logger)
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	bal, err := cfg.Client.NewBalancer()
	if err != nil {
		return nil, err
	}
	return client.Discover(reg, bal, cfg.Client.Service, client.WithLogger(logger))
}

// readBody returns the body as raw JSON so it is sent exactly as written.
func readBody(arg string) (json.RawMessage, error) {
	var data []byte
	switch {
	case arg == "@-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		data = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
		data = b
	default:
		data = []byte(arg)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("-body is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func opNames() string {
	names := make([]string, len(message.Ops))
	for i, op := range message.Ops {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}

func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

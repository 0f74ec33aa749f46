// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ahbtool reaches the AHB of an AST2400/AST2500 BMC through one of its
// bridges and reports which bridges the BMC leaves open.
//
//	ahbtool [flags] probe
//	ahbtool [flags] watch INTERVAL
//	ahbtool [flags] read ADDR [LEN]
//	ahbtool [flags] write ADDR [VALUE]
//	ahbtool [flags] ilpc mode
//	ahbtool [flags] soc
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"github.com/u-root/ahbtool/config"
	"github.com/u-root/ahbtool/pkg/access"
	"github.com/u-root/ahbtool/pkg/ahb"
	"github.com/u-root/ahbtool/pkg/bridge"
	"github.com/u-root/ahbtool/pkg/devmem"
	"github.com/u-root/ahbtool/pkg/ilpc"
	"github.com/u-root/ahbtool/pkg/logger"
	"github.com/u-root/ahbtool/pkg/metric"
	"github.com/u-root/ahbtool/pkg/soc"
	"github.com/u-root/ahbtool/pkg/superio"
	"go.uber.org/zap"
)

var (
	c = config.DefaultConfig

	via        = flag.String("via", c.Interface, "Bridge to reach the AHB through: ilpc or devmem")
	portDevice = flag.String("port-device", c.SuperIO.Device, "I/O port device used for the SuperIO")
	port       = flag.String("port", "0x2e", "SuperIO index port, 0x2e or 0x4e")
	memDevice  = flag.String("mem-device", c.Devmem.Device, "Physical memory device used by -via devmem")
	dtb        = flag.String("dtb", c.DeviceTree, "Describe the SoC with this device tree blob instead of its revision")
	debug      = flag.Bool("debug", false, "Log at debug level")
	logFile    = flag.String("log-file", c.LogFile, "Also log JSON records to this file")
	metrics    = flag.String("metrics", c.MetricsListen, "Serve prometheus metrics on this address")
	version    = flag.Bool("version", false, "Print the version and exit")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: %s [flags] command
commands:
  probe               report which AHB bridges are exposed
  watch INTERVAL      probe every INTERVAL, e.g. 1m
  read ADDR [LEN]     print the word at ADDR, or dump LEN bytes to stdout
  write ADDR [VALUE]  store VALUE at ADDR, or copy stdin to ADDR onwards
  ilpc mode           report whether iLPC2AHB allows writes
  soc                 identify the SoC and list its devices
flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func applyFlags() error {
	p, err := strconv.ParseUint(*port, 0, 16)
	if err != nil {
		return fmt.Errorf("bad port %q: %v", *port, err)
	}
	c.Interface = *via
	c.SuperIO.Device = *portDevice
	c.SuperIO.Port = uint16(p)
	c.Devmem.Device = *memDevice
	c.DeviceTree = *dtb
	c.LogFile = *logFile
	c.MetricsListen = *metrics
	if *debug {
		c.LogLevel = "debug"
	}
	return c.Validate()
}

func openBus(log *zap.Logger) (ahb.AHB, error) {
	t, err := ahb.ParseType(c.Interface)
	if err != nil {
		return nil, err
	}
	switch t {
	case ahb.ILPC:
		p, err := superio.Open(afero.NewOsFs(), c.SuperIO.Device, c.SuperIO.Port)
		if err != nil {
			return nil, err
		}
		b := ilpc.New(p, ilpc.WithLogger(log))
		ok, err := b.Probe()
		if err == nil && !ok {
			err = fmt.Errorf("SuperIO at %#x: %w", c.SuperIO.Port, ahb.ErrNotPresent)
		}
		if err != nil {
			b.Close()
			return nil, err
		}
		return b, nil
	case ahb.Devmem:
		m, err := devmem.Open(c.Devmem.Device, devmem.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("%v: %w", t, ahb.ErrUnsupported)
}

func socOptions(log *zap.Logger) []soc.Option {
	opts := []soc.Option{soc.WithLogger(log)}
	if c.DeviceTree != "" {
		opts = append(opts, soc.WithDeviceTree(afero.NewOsFs(), c.DeviceTree))
	}
	return opts
}

func probe(bus ahb.AHB, log *zap.Logger) error {
	ifs, err := bridge.Discover(bus,
		bridge.WithLogger(log), bridge.WithSoCOptions(socOptions(log)...))
	if err != nil {
		return err
	}
	return ifs.Write(os.Stdout)
}

var watchRetry = backoff.ExponentialBackOff{
	InitialInterval:     time.Second,
	RandomizationFactor: 0.5,
	Multiplier:          2,
	MaxElapsedTime:      0,
	Clock:               backoff.SystemClock,
}

// watch probes every interval. Failed runs are retried sooner, backing off
// up to interval.
func watch(bus ahb.AHB, log *zap.Logger, interval time.Duration) {
	watchRetry.MaxInterval = interval
	watchRetry.Reset()
	for {
		if err := probe(bus, log); err != nil {
			delay := watchRetry.NextBackOff()
			log.Warn("Discovery failed", zap.Error(err), zap.Duration("retry", delay))
			time.Sleep(delay)
			continue
		}
		watchRetry.Reset()
		time.Sleep(interval)
	}
}

func ilpcMode(bus ahb.AHB) error {
	b, ok := bus.(*ilpc.Bridge)
	if !ok {
		return fmt.Errorf("mode of %v: %w", bus.Type(), ahb.ErrUnsupported)
	}
	m, err := b.Mode()
	if err != nil {
		return err
	}
	fmt.Printf("iLPC2AHB bridge: %v\n", m)
	return nil
}

func listSoC(bus ahb.AHB, log *zap.Logger) error {
	s, err := soc.Probe(bus, socOptions(log)...)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Printf("SoC: %s\n", s.Model())
	s.Root().Walk(func(n *soc.Node) {
		if len(n.Reg) == 0 || len(n.Compatible) == 0 {
			return
		}
		fmt.Printf("%-12s %v %s\n", n.Name, n.Reg[0], n.Compatible[0])
	})
	return nil
}

func run(bus ahb.AHB, log *zap.Logger, args []string) error {
	switch args[0] {
	case "probe":
		return probe(bus, log)
	case "watch":
		if len(args) < 2 {
			return access.ErrUsage
		}
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return fmt.Errorf("bad interval %q: %w", args[1], access.ErrUsage)
		}
		watch(bus, log, d)
		return nil
	case "read", "write":
		return access.Run(bus, args, os.Stdin, os.Stdout)
	case "ilpc":
		if len(args) < 2 || args[1] != "mode" {
			return access.ErrUsage
		}
		return ilpcMode(bus)
	case "soc":
		return listSoC(bus, log)
	}
	return fmt.Errorf("unknown command %q: %w", args[0], access.ErrUsage)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("ahbtool %s (%s)\n", c.Version.Version, c.Version.GitHash)
		return
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	if err := applyFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	logger.LogContainer.Configure(os.Stderr, c.LogFile)
	logger.LogContainer.SetLevel(c.Level())
	log := logger.LogContainer.GetLogger()
	defer log.Sync()

	if c.MetricsListen != "" {
		go func() {
			if err := metric.Serve(c.MetricsListen); err != nil {
				log.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	bus, err := openBus(log)
	if err != nil {
		log.Fatal("Could not open the AHB", zap.String("via", c.Interface), zap.Error(err))
	}

	err = run(bus, log, flag.Args())
	if cerr := bus.Close(); cerr != nil {
		log.Warn("Failed to close the AHB", zap.Error(cerr))
	}
	if errors.Is(err, access.ErrUsage) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("Command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

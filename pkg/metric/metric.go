// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "ahbtool"

// Registry holds every collector exported by ahbtool.
var Registry = prometheus.NewRegistry()

// MetricOpts contains naming pieces of the exposed metric
type MetricOpts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
}

var (
	// ILPCTransfers counts iLPC2AHB protocol exchanges by operation.
	ILPCTransfers = CounterVec(MetricOpts{Subsystem: "ilpc", Name: "transfers_total",
		Help: "iLPC2AHB transfers by operation"}, []string{"op"})
	// ILPCBytes counts bytes moved over iLPC2AHB by operation.
	ILPCBytes = CounterVec(MetricOpts{Subsystem: "ilpc", Name: "bytes_total",
		Help: "Bytes moved over iLPC2AHB by operation"}, []string{"op"})
	// ILPCRelockFailures counts failures to lock the SuperIO after a transfer.
	ILPCRelockFailures = Counter(MetricOpts{Subsystem: "ilpc", Name: "relock_failures_total",
		Help: "Failures to lock the SuperIO configuration space after a transfer"})
	// DiscoveryRuns counts bridge discovery runs by result.
	DiscoveryRuns = CounterVec(MetricOpts{Subsystem: "discovery", Name: "runs_total",
		Help: "Bridge discovery runs by result"}, []string{"result"})
)

// Counter creates and registers a prometheus.Counter
func Counter(opts MetricOpts) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: optsToString(opts),
		Help: opts.Help,
	})
	Registry.MustRegister(c)
	return c
}

// CounterVec creates and registers a prometheus.CounterVec
func CounterVec(opts MetricOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: optsToString(opts),
		Help: opts.Help,
	}, labels)
	Registry.MustRegister(c)
	return c
}

// Serve exposes the registry on addr under /metrics until the listener fails.
func Serve(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	return http.Serve(l, mux)
}

func optsToString(opts MetricOpts) string {
	if opts.Name == "" {
		return ""
	}
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	if opts.Subsystem != "" {
		return strings.Join([]string{opts.Namespace, opts.Subsystem, opts.Name}, "_")
	}
	return strings.Join([]string{opts.Namespace, opts.Name}, "_")
}

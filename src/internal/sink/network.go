// FILE: logrelay/src/internal/sink/network.go
package sink

import (
	"fmt"
	"net/url"
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"
	"logrelay/src/internal/transport"

	"github.com/lixenwraith/log"
)

// NetworkOptions configures the network sink
type NetworkOptions struct {
	URL     string
	Format  format.NetworkFormat
	Timeout time.Duration
}

// NetworkSink posts each record to a remote HTTP endpoint. Delivery is best effort, no retry.
type NetworkSink struct {
	config    NetworkOptions
	client    *transport.Client
	formatter format.Formatter
	logger    *log.Logger

	*counters
}

// ValidateURL checks that raw is an absolute http(s) URL
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// NewNetworkSink creates a new network sink.
func NewNetworkSink(opts NetworkOptions, logger *log.Logger) (*NetworkSink, error) {
	if err := ValidateURL(opts.URL); err != nil {
		return nil, err
	}

	formatter, err := format.New(opts.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create network formatter: %w", err)
	}

	n := &NetworkSink{
		config:    opts,
		client:    transport.NewClient(opts.Timeout),
		formatter: formatter,
		logger:    logger,
		counters:  newCounters(),
	}

	logger.Debug("msg", "Network sink created",
		"component", "network_sink",
		"url", opts.URL,
		"format", opts.Format.String())
	return n, nil
}

func (n *NetworkSink) Name() string {
	return "network"
}

func (n *NetworkSink) Deliver(entry core.LogRecord) error {
	body, err := n.formatter.Format(entry)
	if err == nil {
		err = n.client.Post(n.config.URL, n.formatter.ContentType(), body)
	}

	n.record(err)
	if err != nil {
		return &DeliveryError{Sink: n.Name(), Err: err}
	}
	return nil
}

func (n *NetworkSink) Close() error {
	return nil
}

func (n *NetworkSink) GetStats() SinkStats {
	return n.stats(n.Name(), map[string]any{
		"url":    n.config.URL,
		"format": n.config.Format.String(),
	})
}

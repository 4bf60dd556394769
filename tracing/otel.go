// Package tracing builds the OpenTelemetry tracer provider that exports the
// spans of the DevTools calls.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "cdpdriver"

var (
	// ErrInvalidTracesOutput is returned for outputs other than none and otel.
	ErrInvalidTracesOutput = errors.New("invalid traces output")
	// ErrInvalidProto is returned for exporter protocols other than grpc and http.
	ErrInvalidProto = errors.New("invalid protocol")
	// ErrInvalidURLScheme is returned for collector URLs that aren't http(s).
	ErrInvalidURLScheme = errors.New("invalid URL scheme")
	// ErrInvalidGRPCWithURLPath is returned when a URL path is combined with grpc.
	ErrInvalidGRPCWithURLPath = errors.New("grpc protocol does not support URL path")
)

// Provider is a TracerProvider that must be shut down to flush its spans.
type Provider struct {
	trace.TracerProvider
	shutdown func(ctx context.Context) error
}

// Shutdown flushes the pending spans and releases the exporter. Methods of
// the provider are no-ops afterwards.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

// Enabled reports whether spans are exported anywhere.
func (p *Provider) Enabled() bool {
	_, ok := p.TracerProvider.(noop.TracerProvider)
	return !ok
}

type params struct {
	proto    string
	endpoint string
	urlPath  string
	insecure bool
	headers  map[string]string
}

func defaultParams() params {
	return params{
		proto:    "grpc",
		endpoint: "127.0.0.1:4317",
		insecure: true,
		headers:  make(map[string]string),
	}
}

// FromConfigLine returns the provider configured by line, which is either
// "none" (or empty) or
//
//	otel[=<url or host:port>][,proto=grpc|http][,header.<name>=<value>...]
//
// The collector defaults to 127.0.0.1:4317 over insecure grpc. A http(s)
// URL switches the protocol to http, for example
// otel=http://127.0.0.1:4318/v1/traces,header.Authorization=token.
func FromConfigLine(ctx context.Context, line, version string) (*Provider, error) {
	if line == "" || line == "none" {
		return &Provider{
			TracerProvider: noop.NewTracerProvider(),
			shutdown:       func(context.Context) error { return nil },
		}, nil
	}

	p, err := parseConfigLine(line)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptrace.New(ctx, newClient(p))
	if err != nil {
		return nil, fmt.Errorf("creating the traces exporter: %w", err)
	}
	prov := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		)),
	)

	return &Provider{TracerProvider: prov, shutdown: prov.Shutdown}, nil
}

func parseConfigLine(line string) (params, error) {
	p := defaultParams()

	for i, part := range strings.Split(line, ",") {
		key, value, _ := strings.Cut(part, "=")
		if i == 0 {
			if key != "otel" {
				return p, fmt.Errorf("%w %q", ErrInvalidTracesOutput, key)
			}
			if value == "" {
				continue
			}
			if err := p.parseEndpoint(value); err != nil {
				return p, fmt.Errorf("couldn't parse the otel endpoint: %w", err)
			}
			continue
		}

		switch {
		case key == "proto":
			if value != "http" && value != "grpc" {
				return p, fmt.Errorf("couldn't parse the otel proto: %w: %q", ErrInvalidProto, value)
			}
			p.proto = value
		case strings.HasPrefix(key, "header.") && key != "header.":
			p.headers[strings.TrimPrefix(key, "header.")] = value
		default:
			return p, fmt.Errorf("unknown otel config key %s", key)
		}
	}

	if p.proto == "grpc" && p.urlPath != "" {
		return p, ErrInvalidGRPCWithURLPath
	}
	return p, nil
}

// parseEndpoint accepts a bare host:port, kept on the current protocol, or
// a http(s) URL, which selects the http protocol.
func (p *params) parseEndpoint(s string) error {
	if !strings.Contains(s, "://") {
		p.endpoint = s
		return nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrInvalidURLScheme, u.Scheme)
	}

	p.proto = "http"
	p.endpoint = u.Host
	p.urlPath = u.Path
	p.insecure = u.Scheme == "http"

	return nil
}

func newClient(p params) otlptrace.Client {
	if p.proto == "http" {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(p.endpoint),
			otlptracehttp.WithHeaders(p.headers),
		}
		if p.urlPath != "" {
			opts = append(opts, otlptracehttp.WithURLPath(p.urlPath))
		}
		if p.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.NewClient(opts...)
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.endpoint),
		otlptracegrpc.WithHeaders(p.headers),
	}
	if p.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.NewClient(opts...)
}

// Package bridge dispatches host method calls onto the link service and the
// deep-link classifier, and reports results with the error codes host
// applications expect.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"golang.org/x/sync/semaphore"

	"github.com/binSaed/flutter-redirectly/internal/client"
	"github.com/binSaed/flutter-redirectly/internal/deeplink"
	"github.com/binSaed/flutter-redirectly/internal/events"
	"github.com/binSaed/flutter-redirectly/internal/links"
	"github.com/binSaed/flutter-redirectly/internal/logger"
	"github.com/binSaed/flutter-redirectly/internal/metrics"
)

// DefaultConcurrency is the number of method calls HandleAsync runs at once.
const DefaultConcurrency = 8

// Method names accepted by Handle.
const (
	MethodInitialize     = "initialize"
	MethodCreateLink     = "createLink"
	MethodCreateTempLink = "createTempLink"
	MethodGetLinks       = "getLinks"
	MethodUpdateLink     = "updateLink"
	MethodDeleteLink     = "deleteLink"
	MethodGetInitialLink = "getInitialLink"
)

const (
	codeOK = "OK"

	// methodUnknown labels calls to methods the plugin does not implement.
	methodUnknown = "unknown"
)

// MethodCall is one invocation from the host.
type MethodCall struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments"`
}

// Executor runs a result continuation, typically on the host's main thread.
type Executor func(func())

// Result receives the outcome of an asynchronous call.
type Result func(v any, err error)

// Plugin is the single host-facing dispatcher.
type Plugin struct {
	api        *client.Client
	links      *links.Service
	events     *events.Broker
	log        zerolog.Logger
	classifier atomic.Pointer[deeplink.Classifier]
	initialURL atomic.Pointer[string]
	sem        *semaphore.Weighted
	exec       Executor
	classOpts  []deeplink.Option
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithConcurrency bounds the calls HandleAsync runs in parallel.
func WithConcurrency(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithExecutor sets where HandleAsync delivers results. The default runs the
// continuation on the worker goroutine.
func WithExecutor(e Executor) Option {
	return func(p *Plugin) { p.exec = e }
}

// WithLogger sets the base logger. Debug output is gated per session by the
// enableDebugLogging argument of initialize.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Plugin) { p.log = l }
}

// WithClassifierOptions passes extra options to every classifier the plugin
// builds, such as a non-default domain.
func WithClassifierOptions(opts ...deeplink.Option) Option {
	return func(p *Plugin) { p.classOpts = append(p.classOpts, opts...) }
}

// NewPlugin returns a Plugin that issues requests through api and publishes
// opened service links to broker.
func NewPlugin(api *client.Client, broker *events.Broker, opts ...Option) *Plugin {
	p := &Plugin{
		api:    api,
		links:  links.NewService(api),
		events: broker,
		log:    zerolog.Nop(),
		sem:    semaphore.NewWeighted(DefaultConcurrency),
		exec:   func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.setClassifier(false)
	return p
}

func (p *Plugin) setClassifier(debug bool) {
	opts := append([]deeplink.Option{deeplink.WithLogger(logger.Debug(p.log, debug))}, p.classOpts...)
	p.classifier.Store(deeplink.New(opts...))
}

// Handle runs call synchronously. Failures are returned as *Error.
func (p *Plugin) Handle(ctx context.Context, call MethodCall) (any, error) {
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	var (
		v     any
		err   error
		label = call.Method
	)
	switch call.Method {
	case MethodInitialize:
		err = p.initialize(args)
	case MethodCreateLink:
		v, err = p.createLink(ctx, args)
	case MethodCreateTempLink:
		v, err = p.createTempLink(ctx, args)
	case MethodGetLinks:
		v, err = p.getLinks(ctx)
	case MethodUpdateLink:
		v, err = p.updateLink(ctx, args)
	case MethodDeleteLink:
		err = p.deleteLink(ctx, args)
	case MethodGetInitialLink:
		v = p.getInitialLink()
	default:
		label = methodUnknown
		err = &Error{Code: CodeNotImplemented, Message: fmt.Sprintf("method %q is not implemented", call.Method)}
	}

	code := codeOK
	var be *Error
	if errors.As(err, &be) {
		code = be.Code
	}
	metrics.BridgeCallsTotal.WithLabelValues(label, code).Inc()
	p.log.Debug().Str("method", call.Method).Str("code", code).Msg("bridge call")
	return v, err
}

// HandleAsync runs call on a worker goroutine and hands the outcome to done
// through the executor. The request is not cancelled if the caller's context
// ends first; it runs to completion or timeout.
func (p *Plugin) HandleAsync(ctx context.Context, call MethodCall, done Result) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.exec(func() { done(nil, err) })
			return
		}
		defer p.sem.Release(1)

		v, err := p.Handle(ctx, call)
		p.exec(func() { done(v, err) })
	}()
}

// SetInitialURL records the URI the application was launched with.
func (p *Plugin) SetInitialURL(uri string) {
	p.initialURL.Store(&uri)
}

// OpenURL handles a URI opened while the application is running. Service
// links are classified and published; the result reports whether uri was one.
func (p *Plugin) OpenURL(uri string) (deeplink.ResolvedLink, bool) {
	c := p.classifier.Load()
	if !c.IsServiceLink(uri) {
		return deeplink.ResolvedLink{}, false
	}
	link := c.Classify(uri)
	metrics.LinksResolvedTotal.WithLabelValues(resolveResult(link)).Inc()
	if p.events != nil {
		p.events.Publish(link)
	}
	return link, true
}

func resolveResult(l deeplink.ResolvedLink) string {
	if l.OK() {
		return "ok"
	}
	return string(l.Error.Kind)
}

func (p *Plugin) initialize(args map[string]any) error {
	apiKey, _ := stringArg(args, "apiKey")
	baseURL, _ := stringArg(args, "baseUrl")
	debug := cast.ToBool(args["enableDebugLogging"])

	err := p.api.Initialize(client.Config{APIKey: apiKey, BaseURL: baseURL, DebugLogging: debug})
	if err != nil {
		return &Error{Code: CodeInvalidConfig, Message: "API key and base URL are required"}
	}
	p.setClassifier(debug)
	return nil
}

func (p *Plugin) createLink(ctx context.Context, args map[string]any) (any, error) {
	slug, okSlug := stringArg(args, "slug")
	target, okTarget := stringArg(args, "target")
	if !okSlug || !okTarget {
		return nil, &Error{Code: CodeInvalidParams, Message: "Slug and target are required"}
	}
	var metadata map[string]any
	if raw, ok := args["metadata"]; ok && raw != nil {
		m, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Metadata must be an object"}
		}
		metadata = m
	}
	rec, err := p.links.CreateLink(ctx, slug, target, metadata)
	if err != nil {
		return nil, wrap("create link", err)
	}
	return recordValue(rec), nil
}

func (p *Plugin) createTempLink(ctx context.Context, args map[string]any) (any, error) {
	target, ok := stringArg(args, "target")
	if !ok {
		return nil, &Error{Code: CodeInvalidParams, Message: "Target is required"}
	}
	slug, _ := stringArg(args, "slug")

	ttl := links.DefaultTempLinkTTL
	if raw, ok := args["ttlSeconds"]; ok && raw != nil {
		n, err := cast.ToIntE(raw)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "ttlSeconds must be a number"}
		}
		ttl = n
	}
	rec, err := p.links.CreateTempLink(ctx, target, slug, ttl)
	if err != nil {
		return nil, wrap("create temp link", err)
	}
	return recordValue(rec), nil
}

func (p *Plugin) getLinks(ctx context.Context) (any, error) {
	recs, err := p.links.GetLinks(ctx)
	if err != nil {
		return nil, wrap("get links", err)
	}
	return lo.Map(recs, func(r links.Record, _ int) map[string]any { return r }), nil
}

func (p *Plugin) updateLink(ctx context.Context, args map[string]any) (any, error) {
	slug, okSlug := stringArg(args, "slug")
	target, okTarget := stringArg(args, "target")
	if !okSlug || !okTarget {
		return nil, &Error{Code: CodeInvalidParams, Message: "Slug and target are required"}
	}
	rec, err := p.links.UpdateLink(ctx, slug, target)
	if err != nil {
		return nil, wrap("update link", err)
	}
	return recordValue(rec), nil
}

func (p *Plugin) deleteLink(ctx context.Context, args map[string]any) error {
	slug, ok := stringArg(args, "slug")
	if !ok {
		return &Error{Code: CodeInvalidParams, Message: "Slug is required"}
	}
	if err := p.links.DeleteLink(ctx, slug); err != nil {
		return wrap("delete link", err)
	}
	return nil
}

// getInitialLink classifies the launch URI, or returns nil when there was
// none or it is not a service link. The URI is kept for later calls.
func (p *Plugin) getInitialLink() any {
	uri := p.initialURL.Load()
	if uri == nil || *uri == "" {
		return nil
	}
	c := p.classifier.Load()
	if !c.IsServiceLink(*uri) {
		return nil
	}
	return c.Classify(*uri).Map()
}

// stringArg returns a non-empty string argument.
func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", false
	}
	s, err := cast.ToStringE(raw)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// recordValue keeps an empty response a plain nil.
func recordValue(rec links.Record) any {
	if rec == nil {
		return nil
	}
	return map[string]any(rec)
}

// Package client is the calling side of the bridge.
//
// A Client posts one envelope per call and rebuilds the outcome:
//
//	200 + application/json  {"response": ...}  → *Result holding the JSON
//	200 + application/json  {"error": ...}     → *errs.Error of the named category
//	200 + anything else                        → *Result holding the raw bytes
//	non-200, unreadable reply, bad envelope    → *errs.Error, category FetchError
//
// There are no retries and no caching: each call is exactly one HTTP request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"netbridge/codec"
	"netbridge/errs"
	"netbridge/loadbalance"
	"netbridge/message"
	"netbridge/registry"
	"netbridge/transport"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Client is safe for concurrent use; it holds no per-call state.
type Client struct {
	target     string
	httpClient *http.Client
	codec      codec.Codec
	logger     *zap.Logger
}

// sharedHTTPClient pools connections across every Client built without
// WithHTTPClient.
var sharedHTTPClient = transport.NewHTTPClient(transport.Options{})

type Option func(*Client)

// WithHTTPClient replaces the shared pooled client. hc is copied and its copy
// never follows redirects.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		own := *hc
		own.CheckRedirect = transport.NoRedirect
		c.httpClient = &own
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client posting to target, the full URL of a bridge server.
func New(target string, opts ...Option) *Client {
	c := &Client{
		target:     target,
		httpClient: sharedHTTPClient,
		codec:      codec.GetCodec(codec.CodecTypeJSON),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discover resolves one instance of service through reg, picks it with bal and
// returns a client bound to it. The choice is made once.
func Discover(reg registry.Registry, bal loadbalance.Balancer, service string, opts ...Option) (*Client, error) {
	instances, err := reg.Discover(service)
	if err != nil {
		return nil, fmt.Errorf("client: discover %s: %w", service, err)
	}
	instance, err := bal.Pick(instances)
	if err != nil {
		return nil, fmt.Errorf("client: pick %s instance (%s): %w", service, bal.Name(), err)
	}
	return New(instance.Addr, opts...), nil
}

// Target returns the URL this client posts to.
func (c *Client) Target() string {
	return c.target
}

// Do sends one request and returns its result. Every failure is an *errs.Error.
func (c *Client) Do(ctx context.Context, op message.Op, body any) (*Result, error) {
	start := time.Now()
	res, err := c.do(ctx, op, body)
	if err != nil {
		c.logger.Debug("call failed", zap.String("op", string(op)), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("call succeeded", zap.String("op", string(op)), zap.Duration("duration", time.Since(start)), zap.Bool("raw", res.IsRaw()))
	return res, nil
}

func (c *Client) do(ctx context.Context, op message.Op, body any) (*Result, error) {
	// A map rather than message.Request: Normalize must reach the body to turn
	// byte buffers into int arrays.
	payload, err := c.codec.Encode(map[string]any{"type": op, "body": body})
	if err != nil {
		return nil, fetchFailed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target, bytes.NewReader(payload))
	if err != nil {
		return nil, fetchFailed(err)
	}
	req.Header.Set("Content-Type", c.codec.ContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fetchFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, errs.Fetch(errs.CodeInvalidResponse, "Invalid response status: "+strconv.Itoa(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetchFailed(err)
	}

	contentType := resp.Header.Get("Content-Type")
	if codec.ForContentType(contentType).Type() != codec.CodecTypeJSON {
		return &Result{raw: true, data: data, contentType: contentType}, nil
	}
	return parseEnvelope(data)
}

// parseEnvelope turns a JSON reply into a result or the typed error it names.
func parseEnvelope(data []byte) (*Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, invalidBody(err)
	}
	if fields == nil {
		return nil, invalidBody(fmt.Errorf("envelope is not an object"))
	}

	response, hasResponse := fields["response"]
	errRaw, hasError := fields["error"]
	switch {
	case hasResponse && hasError:
		return nil, invalidBody(message.ErrBothSet)
	case !hasResponse && !hasError:
		return nil, invalidBody(message.ErrNeitherSet)
	case hasResponse:
		return &Result{data: response, contentType: message.ContentTypeJSON}, nil
	}

	var body message.ErrorBody
	if err := json.Unmarshal(errRaw, &body); err != nil {
		return nil, invalidBody(err)
	}
	category, ok := errs.Lookup(body.Instance)
	if !ok {
		return nil, errs.Fetch(errs.CodeInvalidResponse, "Invalid error in response: "+body.Instance)
	}
	return nil, errs.New(category, body.Code, body.Message)
}

func fetchFailed(err error) *errs.Error {
	return errs.Wrap(errs.CategoryFetch, errs.CodeFetchFailed, "Fetch failed: "+err.Error(), err)
}

func invalidBody(err error) *errs.Error {
	return errs.Wrap(errs.CategoryFetch, errs.CodeInvalidResponse, "Invalid response body: "+err.Error(), err)
}

// Call is Do followed by Result.Decode into reply. A nil reply discards the result.
func (c *Client) Call(ctx context.Context, op message.Op, args any, reply any) error {
	res, err := c.Do(ctx, op, args)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	return res.Decode(reply)
}

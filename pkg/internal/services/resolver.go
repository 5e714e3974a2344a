package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/semaphore"
)

var (
	ErrHostBlocked     = errors.New("destination host is blocked")
	ErrCycle           = errors.New("uri was already resolved in this chain")
	ErrInvalidResponse = errors.New("response is not a federation document")
)

const resolveBodyLimit = 1 << 20

// resolveLimiter caps simultaneous outbound resolutions process-wide, so one
// note mentioning dozens of actors cannot open unbounded connections.
var resolveLimiter = semaphore.NewWeighted(8)

// Resolver dereferences URIs into federation documents. The visited set is
// scoped to one resolution chain and is never shared across chains.
type Resolver struct {
	history map[string]struct{}
	client  *http.Client
	signer  *models.Account
}

func NewResolver() *Resolver {
	return &Resolver{
		history: make(map[string]struct{}),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve returns a materialized object unchanged, or fetches a URI after the
// trust policy and cycle checks pass. Errors here are never retryable; the
// queue worker decides what to do with them.
func (r *Resolver) Resolve(value any) (ap.Object, error) {
	if value == nil {
		return nil, fmt.Errorf("resolvee is null")
	}
	if obj, ok := ap.AsObject(value); ok {
		return obj, nil
	}

	uri, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("resolvee is neither an object nor an uri")
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("unable to parse uri %s: %w", uri, err)
	}
	if IsHostBlocked(parsed.Host) {
		return nil, fmt.Errorf("%w: %s", ErrHostBlocked, parsed.Host)
	}

	if _, visited := r.history[uri]; visited {
		return nil, fmt.Errorf("%w: %s", ErrCycle, uri)
	}
	r.history[uri] = struct{}{}

	if err := resolveLimiter.Acquire(context.Background(), 1); err != nil {
		return nil, err
	}
	defer resolveLimiter.Release(1)

	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/activity+json, application/ld+json")
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("User-Agent", "fernwood/"+viper.GetString("federation.domain"))

	if viper.GetBool("federation.sign_fetch") {
		if err := r.signRequest(req); err != nil {
			log.Warn().Err(err).Str("uri", uri).Msg("An error occurred when signing resolver fetch, falling back to anonymous...")
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch %s: remote returned status %d", uri, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, resolveBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("unable to read response of %s: %w", uri, err)
	}

	var decoded map[string]any
	if err := jsoniter.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	object := ap.Object(decoded)
	if !object.HasNamespace() {
		return nil, fmt.Errorf("%w: @context does not include the activitystreams namespace", ErrInvalidResponse)
	}

	return object, nil
}

// ResolveCollection resolves a value and asserts it is some Collection or
// OrderedCollection variant.
func (r *Resolver) ResolveCollection(value any) (ap.Object, error) {
	object, err := r.Resolve(value)
	if err != nil {
		return nil, err
	}
	if !ap.IsCollection(object) {
		return nil, fmt.Errorf("unrecognized collection type: %s", object.Type())
	}
	return object, nil
}

func (r *Resolver) signRequest(req *http.Request) error {
	if r.signer == nil {
		signer, err := GetInstanceActor()
		if err != nil {
			return err
		}
		r.signer = &signer
	}

	privateKey, err := ParsePrivateKey(*r.signer.PrivateKeyPem)
	if err != nil {
		return err
	}

	keyID := r.signer.Address() + "#main-key"
	return SignGetRequest(req, privateKey, keyID)
}

// Package cache wraps a model.Model with an expiring LRU of completed
// responses. Identical requests (same instructions, contents and sampling
// parameters) within the TTL are answered from memory.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hupe1980/webdevchat/model"
)

// Options configure the caching wrapper.
type Options struct {
	Size int
	TTL  time.Duration
	// OnHit is called with true on a cache hit and false on a miss.
	OnHit func(hit bool)
}

// Model is a model.Model that memoizes successful responses of the wrapped model.
type Model struct {
	next  model.Model
	cache *expirable.LRU[string, model.Response]
	opts  Options
}

// New wraps next with a response cache.
func New(next model.Model, optFns ...func(o *Options)) *Model {
	opts := Options{
		Size: 256,
		TTL:  10 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Size <= 0 {
		opts.Size = 256
	}
	return &Model{
		next:  next,
		cache: expirable.NewLRU[string, model.Response](opts.Size, nil, opts.TTL),
		opts:  opts,
	}
}

// Generate serves cached responses and stores fresh ones. Failed calls are not cached.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	key, keyErr := Key(m.next.Info(), req)
	if keyErr == nil {
		if resp, ok := m.cache.Get(key); ok {
			m.record(true)
			out := make(chan model.Response, 1)
			errCh := make(chan error)
			out <- resp
			close(out)
			close(errCh)
			return out, errCh
		}
	}
	m.record(false)

	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		resp, err := model.Collect(ctx, m.next, req)
		if err != nil {
			errCh <- err
			return
		}
		if keyErr == nil {
			m.cache.Add(key, resp)
		}
		out <- resp
	}()
	return out, errCh
}

// Info returns the wrapped model's info.
func (m *Model) Info() model.Info { return m.next.Info() }

// Len returns the number of cached responses.
func (m *Model) Len() int { return m.cache.Len() }

// Purge drops all cached responses.
func (m *Model) Purge() { m.cache.Purge() }

func (m *Model) record(hit bool) {
	if m.opts.OnHit != nil {
		m.opts.OnHit(hit)
	}
}

type keyMaterial struct {
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Instructions string   `json:"instructions"`
	Roles        []string `json:"roles"`
	Texts        []string `json:"texts"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    int64    `json:"max_tokens,omitempty"`
}

// Key derives the cache key for a request against the given model.
func Key(info model.Info, req model.Request) (string, error) {
	km := keyMaterial{
		Provider:     info.Provider,
		Model:        info.Name,
		Instructions: req.Instructions,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}
	for _, c := range req.Contents {
		km.Roles = append(km.Roles, c.Role)
		km.Texts = append(km.Texts, c.Text())
	}
	raw, err := json.Marshal(km)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

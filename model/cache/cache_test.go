package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/webdevchat/core"
	"github.com/hupe1980/webdevchat/internal/testutil"
	"github.com/hupe1980/webdevchat/model"
)

func request(text string, temp float64) model.Request {
	return model.Request{
		Instructions: "You are a cloud expert.",
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, text)},
		Temperature:  model.Float(temp),
		MaxTokens:    1000,
	}
}

func TestCache_HitSkipsUpstream(t *testing.T) {
	inner := testutil.NewScriptedModel().Reply("use serverless")
	var hits, misses int
	m := New(inner, func(o *Options) {
		o.OnHit = func(hit bool) {
			if hit {
				hits++
			} else {
				misses++
			}
		}
	})

	first, err := model.Collect(context.Background(), m, request("lambda or ecs?", 0.7))
	require.NoError(t, err)
	second, err := model.Collect(context.Background(), m, request("lambda or ecs?", 0.7))
	require.NoError(t, err)

	assert.Equal(t, "use serverless", first.Text())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.CallCount())
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, m.Len())
}

func TestCache_DifferentParamsMiss(t *testing.T) {
	inner := testutil.NewScriptedModel().Reply("a").Reply("b")
	m := New(inner)

	_, err := model.Collect(context.Background(), m, request("q", 0.7))
	require.NoError(t, err)
	second, err := model.Collect(context.Background(), m, request("q", 0.3))
	require.NoError(t, err)

	assert.Equal(t, "b", second.Text())
	assert.Equal(t, 2, inner.CallCount())
}

func TestCache_ErrorsNotCached(t *testing.T) {
	inner := testutil.NewScriptedModel().Fail(assert.AnError).Reply("recovered")
	m := New(inner)

	_, err := model.Collect(context.Background(), m, request("q", 0.7))
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, m.Len())

	resp, err := model.Collect(context.Background(), m, request("q", 0.7))
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text())
}

func TestCache_Expires(t *testing.T) {
	inner := testutil.NewScriptedModel().Reply("one").Reply("two")
	m := New(inner, func(o *Options) { o.TTL = 20 * time.Millisecond })

	_, err := model.Collect(context.Background(), m, request("q", 0.7))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)

	resp, err := model.Collect(context.Background(), m, request("q", 0.7))
	require.NoError(t, err)
	assert.Equal(t, "two", resp.Text())
}

func TestKey_StableAndSensitive(t *testing.T) {
	info := model.Info{Name: "gpt-4-turbo", Provider: "openai"}
	k1, err := Key(info, request("q", 0.7))
	require.NoError(t, err)
	k2, err := Key(info, request("q", 0.7))
	require.NoError(t, err)
	k3, err := Key(model.Info{Name: "gpt-4o", Provider: "openai"}, request("q", 0.7))
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestCache_Purge(t *testing.T) {
	m := New(testutil.NewScriptedModel().Reply("x"))
	_, err := model.Collect(context.Background(), m, request("q", 0.7))
	require.NoError(t, err)
	m.Purge()
	assert.Equal(t, 0, m.Len())
}

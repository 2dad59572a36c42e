package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fsenso-ji">Senso-ji <b>Temple</b></a>
  <a class="result__snippet">Tokyo&#39;s oldest temple &amp; a must-see in <b>Asakusa</b>.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/shibuya">Shibuya Crossing</a>
  <a class="result__snippet">The busiest crossing in the world.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/third">Third</a>
</div>
</body></html>`

func TestWebSearch(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		query = r.PostForm.Get("q")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	ws := NewWebSearch(WithSearchEndpoint(srv.URL), WithSearchClient(srv.Client()), WithMaxResults(2))
	out, err := ws.Invoke(context.Background(), map[string]any{"query": "tokyo attractions"})
	require.NoError(t, err)
	assert.Equal(t, "tokyo attractions", query)

	text := out.(string)
	assert.Equal(t,
		"Senso-ji Temple\nhttps://example.com/senso-ji\nTokyo's oldest temple & a must-see in Asakusa.\n\n"+
			"Shibuya Crossing\nhttps://example.com/shibuya\nThe busiest crossing in the world.",
		text)
}

func TestWebSearchErrorsAreText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ws := NewWebSearch(WithSearchEndpoint(srv.URL), WithSearchClient(srv.Client()))
	out, err := ws.Invoke(context.Background(), map[string]any{"query": "kyoto"})
	require.NoError(t, err)
	assert.Equal(t, "Search error: search returned status 429", out)

	_, err = ws.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestWebSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="no-results">nothing</div></body></html>`))
	}))
	defer srv.Close()

	out, err := NewWebSearch(WithSearchEndpoint(srv.URL)).Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, "No good search result found", out)
}

package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectAccumulatesAndForwards(t *testing.T) {
	client := &ScriptedClient{Responses: []string{"LGTM: the change is sound"}, ChunkSize: 5}
	stream, err := client.Stream(context.Background(), Request{User: "review this"})
	require.NoError(t, err)

	var forwarded []string
	full, err := Collect(context.Background(), stream, func(s string) { forwarded = append(forwarded, s) })
	require.NoError(t, err)
	assert.Equal(t, "LGTM: the change is sound", full)
	assert.Greater(t, len(forwarded), 1, "response must arrive in multiple chunks")
}

func TestCollectNilSink(t *testing.T) {
	client := &ScriptedClient{Responses: []string{"ok"}}
	stream, err := client.Stream(context.Background(), Request{User: "x"})
	require.NoError(t, err)

	full, err := Collect(context.Background(), stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", full)
}

func TestScriptedClientNoModel(t *testing.T) {
	client := &ScriptedClient{NoModel: true}
	_, err := client.Stream(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestHTTPClientStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range []string{"hello", " world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", word)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "test-model")
	stream, err := client.Stream(context.Background(), Request{System: "be brief", User: "greet"})
	require.NoError(t, err)

	full, err := Collect(context.Background(), stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", full)
}

func TestHTTPClientNoModelConfigured(t *testing.T) {
	client := NewHTTPClient("http://localhost:0", "", "")
	_, err := client.Stream(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestHTTPClientModelHintWins(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, decodeJSON(r, &req))
		gotModel = req.Model
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "default-model")
	stream, err := client.Stream(context.Background(), Request{User: "x", ModelHint: "hinted-model"})
	require.NoError(t, err)
	_, err = Collect(context.Background(), stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "hinted-model", gotModel)
}

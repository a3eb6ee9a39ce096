// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// fakeOllama answers batch requests with reply and streaming requests with
// reply split into fragments.
func fakeOllama(t *testing.T, reply string, fragments []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req types.PromptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3:8b", req.Model)

		if !req.Stream {
			_ = json.NewEncoder(w).Encode(map[string]any{"response": reply, "done": true})
			return
		}
		for _, f := range fragments {
			fmt.Fprintf(w, `{"response":%q,"done":false}`+"\n", f)
			w.(http.Flusher).Flush()
		}
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
}

func newTestClient(t *testing.T, endpoint string, stream bool, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(types.ModelConfig{
		Name:     "llama3:8b",
		Endpoint: endpoint,
		Stream:   stream,
		Timeout:  timeout,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(types.ModelConfig{Endpoint: DefaultEndpoint})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = NewClient(types.ModelConfig{Name: "m", Endpoint: "localhost:11434"})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	c, err := NewClient(types.ModelConfig{Name: "m"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestGenerateBatch(t *testing.T) {
	ts := fakeOllama(t, "Cleaned text.", nil)
	defer ts.Close()

	c := newTestClient(t, ts.URL+"/api/generate", false, time.Second)
	got, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Cleaned text.", got)
}

func TestStreamMatchesBatch(t *testing.T) {
	ts := fakeOllama(t, "The quick brown fox.", []string{"The ", "quick ", "brown ", "fox."})
	defer ts.Close()

	batch := newTestClient(t, ts.URL, false, time.Second)
	stream := newTestClient(t, ts.URL, true, time.Second)

	a, err := batch.Generate(context.Background(), "p")
	require.NoError(t, err)
	b, err := stream.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStream_FragmentsInOrder(t *testing.T) {
	ts := fakeOllama(t, "", []string{"a", "b", "c"})
	defer ts.Close()

	c := newTestClient(t, ts.URL, true, time.Second)
	s, err := c.OpenStream(context.Background(), "p")
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, frag)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	for _, stream := range []bool{false, true} {
		c := newTestClient(t, "http://"+addr+"/api/generate", stream, time.Second)
		_, err := c.Generate(context.Background(), "p")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrEndpointUnavailable, "stream=%v", stream)
	}
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model 'llama3:8b' not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, false, time.Second)
	_, err := c.Generate(context.Background(), "p")

	var me *types.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, http.StatusNotFound, me.StatusCode)
	assert.Contains(t, me.Body, "not found")
	assert.False(t, me.Retryable())
}

func TestStream_TruncatedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"response":"partial","done":false}`)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, true, time.Second)
	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, types.ErrEndpointUnavailable)
}

func TestStream_ErrorFragment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"response":"a","done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, true, time.Second)
	_, err := c.Generate(context.Background(), "p")

	var me *types.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "out of memory", me.Body)
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := newTestClient(t, ts.URL, false, 50*time.Millisecond)
	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, types.ErrEndpointUnavailable)
}

func TestGenerate_ParentCancelled(t *testing.T) {
	ts := fakeOllama(t, "x", nil)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, ts.URL, false, time.Second)
	_, err := c.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, types.ErrEndpointUnavailable)
}

func TestGenerate_SendsBearerKey(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprintln(w, `{"response":"ok","done":true}`)
	}))
	defer ts.Close()

	c, err := NewClient(types.ModelConfig{Name: "m", Endpoint: ts.URL, APIKey: "sekret"})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sekret", auth)
}

func TestPing(t *testing.T) {
	ts := fakeOllama(t, "", nil)
	defer ts.Close()

	c := newTestClient(t, ts.URL+"/api/generate", false, time.Second)
	assert.NoError(t, c.Ping(context.Background()))
}

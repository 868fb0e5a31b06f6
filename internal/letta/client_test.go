// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package letta

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/", "secret-token").WithHTTPClient(srv.Client())
	c.retryDelay = time.Millisecond
	return c
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health/", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"version":"0.6.1","status":"ok"}`))
	}))

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "0.6.1", status.Version)
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient("", "")
	_, err := c.Health(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.SendMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_ListAgents(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/agents/", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"agent-1","name":"Ada","description":"helper","llm_config":{"model":"gpt-4o"}},
			{"id":"agent-2","name":""}
		]`))
	}))

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Ada", agents[0].DisplayName())
	assert.Equal(t, "gpt-4o", agents[0].LLMConfig.Model)
	assert.Equal(t, "agent-2", agents[1].DisplayName())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agents)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	c.WithMaxRetries(2)

	_, err := c.ListAgents(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"detail":"bad token"}`, ErrAuthFailed},
		{http.StatusForbidden, ``, ErrAuthFailed},
		{http.StatusNotFound, `{"detail":"Agent agent-x not found"}`, ErrAgentNotFound},
		{http.StatusTooManyRequests, `{"message":"slow down"}`, ErrRateLimited},
	}
	for _, tt := range tests {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))
		c.WithMaxRetries(1)

		_, err := c.GetAgent(context.Background(), "agent-x")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestClient_SendMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/agents/agent-1/messages", r.URL.Path)

		var req messageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Equal(t, "hello", req.Messages[0].Content)
		}
		assert.False(t, req.StreamTokens)

		_, _ = w.Write([]byte(`{"messages":[
			{"message_type":"reasoning_message","reasoning":"greet back"},
			{"message_type":"assistant_message","content":"Hi there"}
		]}`))
	}))

	_, err := c.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoAgent)

	require.NoError(t, c.SelectAgent("agent-1"))
	reply, err := c.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)
}

func TestClient_SendMessageContentParts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[{"message_type":"assistant_message","content":[
			{"type":"text","text":"one "},{"type":"image","text":"skip"},{"type":"text","text":"two"}
		]}]}`))
	})).WithAgent("agent-1")

	reply, err := c.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "one two", reply)
}

func TestClient_SendMessageEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[{"message_type":"tool_call_message"}]}`))
	})).WithAgent("agent-1")

	_, err := c.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClient_SendMessageNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	})).WithAgent("agent-1")

	_, err := c.SendMessage(context.Background(), "hello")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "boom", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SelectAgent(t *testing.T) {
	c := NewClient("http://localhost:8283", "t")
	assert.ErrorIs(t, c.SelectAgent("  "), ErrNoAgent)
	require.NoError(t, c.SelectAgent(" agent-9 "))
	assert.Equal(t, "agent-9", c.AgentID())
}

func TestCalculateBackoff(t *testing.T) {
	c := NewClient("http://localhost", "t")
	assert.Equal(t, retryBaseDelay, c.calculateBackoff(1))
	assert.Equal(t, 2*retryBaseDelay, c.calculateBackoff(2))
	assert.Equal(t, retryMaxDelay, c.calculateBackoff(10))
}

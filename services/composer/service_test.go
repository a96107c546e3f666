package composer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"threadsmith-backend/lib/scrapers/threads"
	"threadsmith-backend/lib/telemetry"
)

func fakeOpenAI(t *testing.T, requests *atomic.Int64, sawTemperature *atomic.Bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var params map[string]any
		require.NoError(t, json.Unmarshal(body, &params))
		if _, ok := params["temperature"]; ok {
			sawTemperature.Store(true)
		}
		require.EqualValues(t, 4000, params["max_completion_tokens"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  params["model"],
			"choices": []map[string]any{{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": "生成されたテキスト",
				},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestProcessPosts(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/composer")
	defer cleanup()

	var requests atomic.Int64
	var sawTemperature atomic.Bool
	server := fakeOpenAI(t, &requests, &sawTemperature)
	defer server.Close()

	service := NewService(Options{
		APIKey:  "test-key",
		Model:   "gpt-4.1-2025-04-14",
		BaseURL: server.URL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	posts := []threads.Post{
		{Username: "taro_dev", Text: "一つ目の参考投稿"},
		{Username: "hana_writes", Text: "二つ目の参考投稿"},
	}
	targets := []string{"エンジニア", "主婦"}

	finalPosts := service.ProcessPosts(ctx, posts, targets)
	require.Len(t, finalPosts, 4)
	require.Equal(t, "taro_dev", finalPosts[0].ReferenceUsername)
	require.Equal(t, "エンジニア", finalPosts[0].Target)
	require.Equal(t, "生成されたテキスト", finalPosts[0].Text)

	// analyze + template per post, then one call per target
	require.EqualValues(t, 8, requests.Load())
	// gpt-4.1 family must not send temperature
	require.False(t, sawTemperature.Load())
}

func TestLegacyModelSendsTemperature(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/composer")
	defer cleanup()

	var requests atomic.Int64
	var sawTemperature atomic.Bool
	server := fakeOpenAI(t, &requests, &sawTemperature)
	defer server.Close()

	service := NewService(Options{
		APIKey:  "test-key",
		Model:   "gpt-4-turbo-preview",
		BaseURL: server.URL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	out, err := service.Probe(ctx)
	require.NoError(t, err)
	require.Equal(t, "生成されたテキスト", out)
	require.True(t, sawTemperature.Load())
}

func TestIsNewGenModel(t *testing.T) {
	require.True(t, isNewGenModel("gpt-4.1-2025-04-14"))
	require.True(t, isNewGenModel("o3-mini"))
	require.True(t, isNewGenModel("gpt-4o"))
	require.False(t, isNewGenModel("gpt-4-turbo-preview"))
	require.False(t, isNewGenModel("gpt-3.5-turbo"))
}

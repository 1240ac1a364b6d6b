package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON(t *testing.T) {
	var gotAuth, gotType string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{
		"Authorization": "Bearer secret",
	}, map[string]interface{}{"model": "m", "temperature": 0.2})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "m", gotBody["model"])
}

func TestClient_PostJSON_UnencodablePayload(t *testing.T) {
	client := NewClient(time.Second)
	_, err := client.PostJSON(context.Background(), "http://127.0.0.1:1", nil, map[string]interface{}{"bad": make(chan int)})
	assert.ErrorContains(t, err, "encode request")
}

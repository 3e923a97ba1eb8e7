package logui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/tvtidy/internal/config"
)

func TestHub_RingAndSince(t *testing.T) {
	h := NewHub(3)
	for _, m := range []string{"a", "b", "c", "d"} {
		h.Append("info", m)
	}
	// 容量 3，最老的一条被挤掉
	lines := h.Since(0)
	require.Len(t, lines, 3)
	assert.Equal(t, "b", lines[0].Message)
	assert.Equal(t, "d", lines[2].Message)

	inc := h.Since(lines[1].Seq)
	require.Len(t, inc, 1)
	assert.Equal(t, "d", inc[0].Message)
	assert.Nil(t, h.Since(lines[2].Seq))
}

func TestHook_ForwardsEntries(t *testing.T) {
	h := NewHub(10)
	log := logrus.New()
	log.AddHook(&Hook{Hub: h})
	log.WithField("src", "/tv/a.mkv").Warn("operation failed")

	lines := h.Since(0)
	require.Len(t, lines, 1)
	assert.Equal(t, "warning", lines[0].Level)
	assert.Contains(t, lines[0].Message, "operation failed")
	assert.Contains(t, lines[0].Message, "src=/tv/a.mkv")
}

func TestServer_LogsAndStop(t *testing.T) {
	h := NewHub(10)
	h.Append("info", "hello")
	srv := httptest.NewServer(NewServer(h, config.ServerConfig{}))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/logs?after=0")
	require.NoError(t, err)
	var lines []Line
	require.NoError(t, json.NewDecoder(res.Body).Decode(&lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0].Message)

	assert.False(t, h.StopRequested())
	res, err = http.Post(srv.URL+"/api/stop", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, h.StopRequested())
}

func TestServer_TokenGate(t *testing.T) {
	h := NewHub(10)
	srv := httptest.NewServer(NewServer(h, config.ServerConfig{Token: "s3cret"}))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/logs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/logs?token=s3cret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

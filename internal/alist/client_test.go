package alist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/tvtidy/internal/config"
)

func testClient(url string) *Client {
	return NewClient(config.AlistConfig{
		URL:       url,
		Token:     "test-token",
		Retries:   2,
		BackoffMs: 1,
		PageSize:  2,
	})
}

func TestList_Paginates(t *testing.T) {
	pages := [][]map[string]interface{}{
		{{"name": "a.mkv", "is_dir": false, "size": 1}, {"name": "b.mkv", "is_dir": false, "size": 2}},
		{{"name": "S01", "is_dir": true, "size": 0}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/fs/list", r.URL.Path)
		require.Equal(t, "test-token", r.Header.Get("Authorization"))
		var body struct {
			Page int `json:"page"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200, "message": "success",
			"data": map[string]interface{}{"content": pages[body.Page-1], "total": 3},
		})
	}))
	defer srv.Close()

	entries, err := testClient(srv.URL).List(context.Background(), "/tv/show")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "/tv/show/a.mkv", entries[0].Path)
	assert.True(t, entries[2].IsDir)
}

func TestRename_RetriesOn429(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "success"})
	}))
	defer srv.Close()

	err := testClient(srv.URL).Rename(context.Background(), "/tv/old.mkv", "new.mkv")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCall_NotFoundAfterRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 500, "message": "object not found"})
	}))
	defer srv.Close()

	err := testClient(srv.URL).Rename(context.Background(), "/tv/gone.mkv", "x.mkv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	// 初次 + 2 次重试
	assert.Equal(t, 3, calls)
}

func TestMkdir_ExistingIsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 403, "message": "folder already exists"})
	}))
	defer srv.Close()

	err := testClient(srv.URL).Mkdir(context.Background(), "/tv/Show (2020)/S01")
	assert.NoError(t, err)
}

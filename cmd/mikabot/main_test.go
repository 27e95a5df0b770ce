package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("debug", "json", &buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.WithField("component", "test").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])

	buf.Reset()
	log = newLogger("loud", "text", &buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "Unknown log level")
}

func TestPreviewCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Shooting Stars Tonight</title></head><body></body></html>`)
	}))
	defer srv.Close()

	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config-dir", t.TempDir(), "preview", "--author", "Aiko", srv.URL + "/stars"})
	require.NoError(t, cmd.Execute())

	var card map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &card))
	assert.Equal(t, "💖🌟 Shooting Stars Tonight 🔗 | ⭐", card["title"])
	assert.Equal(t, srv.URL+"/stars", card["url"])
	assert.Contains(t, card["footer_text"], "Shared by: Aiko")
}

func TestPreviewCommand_FailedExtraction(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config-dir", t.TempDir(), "preview", srv.URL})
	assert.Error(t, cmd.Execute())
}

//     Copyright (C) 2025, mashb1t
//
//     This file is part of dns-txt-ollama-server.
//
//     dns-txt-ollama-server is free software: you can redistribute it and/or modify
//     it under the terms of the GNU General Public License as published by
//     the Free Software Foundation, either version 3 of the License, or
//     (at your option) any later version.
//
//     dns-txt-ollama-server is distributed in the hope that it will be useful,
//     but WITHOUT ANY WARRANTY; without even the implied warranty of
//     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//     GNU General Public License for more details.
//
//     You should have received a copy of the GNU General Public License
//     along with this program.  If not, see <https://www.gnu.org/licenses/>.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return &Client{
		url:    url + "/api/chat",
		model:  "llama3.2",
		client: &http.Client{},
	}
}

func collect(t *testing.T, events <-chan Event) (text string, terminal Event) {
	t.Helper()
	for e := range events {
		if e.Err != nil || e.Done {
			return text, e
		}
		text += e.Text
	}
	t.Fatal("stream closed without a terminal event")
	return "", Event{}
}

func TestClientStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := new(chatRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3.2" || !req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "why is the sky blue" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hello"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":" world"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	text, terminal := collect(t, c.Stream(context.Background(), "why is the sky blue"))
	if terminal.Err != nil {
		t.Fatalf("unexpected stream err: %v", terminal.Err)
	}
	if !terminal.Done {
		t.Fatal("stream should end with a done event")
	}
	if text != "Hello world" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestClientStream_eofWithoutDoneFlag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"partial"},"done":false}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	text, terminal := collect(t, c.Stream(context.Background(), "p"))
	if !terminal.Done || terminal.Err != nil {
		t.Fatalf("eof should complete the stream, got %+v", terminal)
	}
	if text != "partial" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestClientStream_badStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, terminal := collect(t, c.Stream(context.Background(), "p"))
	if terminal.Err == nil {
		t.Fatal("non-success status should fail the stream")
	}
}

func TestClientStream_brokenChunk(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ok"},"done":false}`)
		fmt.Fprintln(w, `{not json`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	text, terminal := collect(t, c.Stream(context.Background(), "p"))
	if terminal.Err == nil {
		t.Fatal("broken chunk should fail the stream")
	}
	if text != "ok" {
		t.Fatalf("fragments before the broken chunk should be delivered, got %q", text)
	}
}

func TestClientStream_connectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close() // nothing listens here anymore

	c := newTestClient(ts.URL)
	_, terminal := collect(t, c.Stream(context.Background(), "p"))
	if terminal.Err == nil {
		t.Fatal("connection failure should fail the stream")
	}
}

func TestClientStream_abandonedConsumer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		for i := 0; i < 1000; i++ {
			if _, err := fmt.Fprintln(w, `{"message":{"role":"assistant","content":"xxxxxxxxxx"},"done":false}`); err != nil {
				return
			}
			f.Flush()
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(ts.URL)
	events := c.Stream(ctx, "p")
	<-events // take one event, then walk away
	cancel()

	// the producer must unblock and close its channel
	deadline := time.After(time.Second * 2)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("producer did not stop after ctx cancellation")
		}
	}
}

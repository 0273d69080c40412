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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// a single NDJSON line from ollama is tiny, this is just a hard stop
	// against a misbehaving backend
	maxChunkLineSize = 256 * 1024
)

// Client streams chat completions from an ollama server.
type Client struct {
	url    string
	model  string
	client *http.Client
}

// NewClient returns a Client for the /api/chat endpoint at
// protocol://host:port, generating with the given model.
func NewClient(model, protocol, host string, port int) *Client {
	transport := &http.Transport{
		MaxIdleConns:    2,
		IdleConnTimeout: 90 * time.Second,
	}

	return &Client{
		url:    fmt.Sprintf("%s://%s:%d/api/chat", protocol, host, port),
		model:  model,
		client: &http.Client{Transport: transport},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Stream implements Streamer. The request runs on its own goroutine and is
// bound to ctx, cancelling ctx aborts the connection.
func (c *Client) Stream(ctx context.Context, prompt string) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		c.stream(ctx, prompt, out)
	}()
	return out
}

func (c *Client) stream(ctx context.Context, prompt string, out chan<- Event) {
	body, err := json.Marshal(&chatRequest{
		Model:    c.model,
		Stream:   true,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		emit(ctx, out, Event{Err: fmt.Errorf("marshal request: %w", err)})
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		emit(ctx, out, Event{Err: fmt.Errorf("new request: %w", err)})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		emit(ctx, out, Event{Err: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		emit(ctx, out, Event{Err: fmt.Errorf("bad http status: %s", resp.Status)})
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxChunkLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		chunk := new(chatChunk)
		if err := json.Unmarshal(line, chunk); err != nil {
			emit(ctx, out, Event{Err: fmt.Errorf("broken chunk: %w", err)})
			return
		}

		if len(chunk.Message.Content) != 0 {
			if !emit(ctx, out, Event{Text: chunk.Message.Content}) {
				return
			}
		}
		if chunk.Done {
			emit(ctx, out, Event{Done: true})
			return
		}
	}
	if err := scanner.Err(); err != nil {
		emit(ctx, out, Event{Err: err})
		return
	}

	// backend closed the stream without a done flag
	emit(ctx, out, Event{Done: true})
}

// emit reports false if ctx ended before e was accepted.
func emit(ctx context.Context, out chan<- Event, e Event) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

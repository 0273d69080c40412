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

import "context"

// Event is one message read from a running stream. Text carries an
// incremental fragment of generated text. A stream ends with exactly one
// terminal event, Done on a normal completion or Err on any fault, after
// which the channel is closed.
type Event struct {
	Text string
	Done bool
	Err  error
}

// Streamer starts generating text for a prompt.
//
// Implementations produce on their own goroutine and must never block on a
// consumer that walked away: every send selects on ctx, and cancelling ctx
// stops production.
type Streamer interface {
	Stream(ctx context.Context, prompt string) <-chan Event
}

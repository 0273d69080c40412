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
	"strings"
	"sync"
	"time"
)

// TimeoutAnswer is the answer content when the deadline passed before any
// text arrived.
const TimeoutAnswer = "Request timed out"

// continuationMarker replaces the tail of an answer that was cut off at the
// length cap before the stream finished.
const continuationMarker = "..."

// Answer is the finalized result of one aggregation run. Complete is true
// only if the stream finished normally before the length cap or the
// deadline cut it off.
type Answer struct {
	Content  string
	Complete bool
}

// Aggregate starts s for prompt and collects fragments until the stream
// ends, the accumulated text reaches maxChars, or deadline passes,
// whichever comes first.
//
// The deadline is absolute: a slow trickle of fragments does not extend the
// overall budget. A stream failure is not an error, its message becomes
// answer content. When Aggregate returns, the stream context is cancelled
// and an orphaned producer is left to exit on its own, it is never awaited.
func Aggregate(ctx context.Context, s Streamer, prompt string, maxChars int, deadline time.Time) Answer {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := s.Stream(streamCtx, prompt)

	timer := getTimer(time.Until(deadline))
	defer releaseTimer(timer)

	b := new(strings.Builder)
	done := false

loop:
	for b.Len() < maxChars {
		select {
		case e, ok := <-events:
			if !ok { // producer quit without a terminal event
				break loop
			}
			if e.Err != nil {
				// surface the failure as answer text instead of dropping it
				b.WriteString("[llm error] ")
				b.WriteString(e.Err.Error())
				break loop
			}
			if e.Done {
				done = true
				break loop
			}
			b.WriteString(e.Text)
		case <-timer.C:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	final := b.String()
	if len(final) > maxChars {
		final = final[:maxChars]
	}
	if len(final) == maxChars && !done && maxChars >= len(continuationMarker) {
		final = final[:maxChars-len(continuationMarker)] + continuationMarker
	}
	if len(final) == 0 {
		final = TimeoutAnswer
	}

	return Answer{Content: final, Complete: done}
}

var timerPool = sync.Pool{}

func getTimer(t time.Duration) *time.Timer {
	timer, ok := timerPool.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(t)
	}
	if timer.Reset(t) {
		panic("llm.getTimer: active timer trapped in timerPool")
	}
	return timer
}

func releaseTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timerPool.Put(timer)
}

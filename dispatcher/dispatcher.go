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

package dispatcher

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/mashb1t/dns-txt-ollama-server/dispatcher/cache"
	"github.com/mashb1t/dns-txt-ollama-server/dispatcher/llm"
	"github.com/mashb1t/dns-txt-ollama-server/dispatcher/ratelimit"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTTL      = 60
	defaultMaxChars = 500
	defaultTimeout  = time.Second * 4
)

// Dispatcher answers dns TXT queries by prompting a streaming llm backend.
type Dispatcher struct {
	entry *logrus.Entry

	domain   string
	ttl      uint32
	maxChars int
	timeout  time.Duration

	limiter  *ratelimit.Limiter
	streamer llm.Streamer

	cache *cache.Cache

	deduplicate bool
	sfGroup     singleflight.Group
}

// InitDispatcher inits a dispatcher from configuration
func InitDispatcher(conf *Config, entry *logrus.Entry) (*Dispatcher, error) {
	d := new(Dispatcher)
	d.entry = entry

	d.domain = conf.Domain
	if conf.TTL > 0 {
		d.ttl = conf.TTL
	} else {
		d.ttl = defaultTTL
	}
	if conf.MaxChars > 0 {
		d.maxChars = conf.MaxChars
	} else {
		d.maxChars = defaultMaxChars
	}
	if conf.Timeout > 0 {
		d.timeout = time.Duration(conf.Timeout) * time.Second
	} else {
		d.timeout = defaultTimeout
	}

	if len(conf.LLM.Model) == 0 {
		return nil, errors.New("missing args: no llm model")
	}
	if len(conf.LLM.Host) == 0 || conf.LLM.Port == 0 {
		return nil, errors.New("missing args: no llm host or port")
	}
	protocol := conf.LLM.Protocol
	if len(protocol) == 0 {
		protocol = "http"
	}
	d.streamer = llm.NewClient(conf.LLM.Model, protocol, conf.LLM.Host, conf.LLM.Port)

	if conf.RateLimit.TokensPerMinute > 0 {
		d.limiter = ratelimit.New(conf.RateLimit.TokensPerMinute)
	}

	if conf.Cache.Size > 0 {
		d.cache = cache.New(conf.Cache.Size)
	}

	d.deduplicate = conf.Deduplicate

	return d, nil
}

// ServeDNS builds one reply per inbound message. It returns (nil, nil) when
// the message must be dropped without a reply: the client is over its rate
// limit or the message carries no question. Questions in one message are
// processed sequentially, each with its own full time budget.
func (d *Dispatcher) ServeDNS(ctx context.Context, q *dns.Msg, from net.Addr) (*dns.Msg, error) {
	// one rate limit check per inbound message, before any question work
	if d.limiter != nil && !d.limiter.Allow(from.String()) {
		return nil, nil // dns has no rcode for rate limiting, drop silently
	}

	if len(q.Question) == 0 {
		return nil, nil
	}

	requestLogger := d.getRequestLogger(q)
	defer releaseRequestLogger(requestLogger)

	r := new(dns.Msg)
	r.SetReply(q)
	r.Authoritative = true

	for _, question := range q.Question {
		if question.Qtype != dns.TypeTXT || question.Qclass != dns.ClassINET {
			continue // not an error, the question just gets no record
		}

		if d.cache != nil {
			if rr := d.cache.Get(question); rr != nil {
				requestLogger.Debug("cache hit")
				r.Answer = append(r.Answer, rr)
				continue
			}
		}

		queryStart := time.Now()
		answer := d.ask(ctx, question.Name)
		requestLogger.Debugf("answer after %dms, complete: %v", time.Since(queryStart).Milliseconds(), answer.Complete)

		rr := &dns.TXT{
			Hdr: dns.RR_Header{
				Name:   question.Name,
				Rrtype: dns.TypeTXT,
				Class:  dns.ClassINET,
				Ttl:    d.ttl,
			},
			Txt: splitTXT(answer.Content),
		}
		r.Answer = append(r.Answer, rr)

		// partial and failed answers are not worth a ttl
		if d.cache != nil && answer.Complete {
			d.cache.Add(question, rr, time.Now().Add(time.Duration(d.ttl)*time.Second))
		}
	}

	return r, nil
}

// ask runs one deadline-bounded aggregation for the question name.
func (d *Dispatcher) ask(ctx context.Context, name string) llm.Answer {
	prompt := dnsSafePrompt(name, d.domain, d.maxChars)
	deadline := time.Now().Add(d.timeout)

	if !d.deduplicate {
		return llm.Aggregate(ctx, d.streamer, prompt, d.maxChars, deadline)
	}

	// concurrent identical prompts share one stream. The shared run is
	// bound to the first caller's ctx, late joiners just read its answer.
	v, _, _ := d.sfGroup.Do(prompt, func() (interface{}, error) {
		return llm.Aggregate(ctx, d.streamer, prompt, d.maxChars, deadline), nil
	})
	return v.(llm.Answer)
}

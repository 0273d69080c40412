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

package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const (
	serverUDPWriteTimeout = time.Second
)

type udpServer struct {
	conf *Config
}

func NewUDPServer(conf *Config) Server {
	if conf.MaxUDPPayloadSize < dns.MinMsgSize {
		conf.MaxUDPPayloadSize = dns.MinMsgSize
	}
	if conf.MaxUDPPayloadSize > dns.MaxMsgSize {
		conf.MaxUDPPayloadSize = dns.MaxMsgSize
	}
	return &udpServer{conf: conf}
}

func (s *udpServer) ListenAndServe(h Handler) error {
	listenerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := s.conf.PacketConn
	readBuf := make([]byte, s.conf.MaxUDPPayloadSize)
	for {
		n, from, err := c.ReadFrom(readBuf)
		if err != nil {
			netErr, ok := err.(net.Error)
			if ok && netErr.Temporary() {
				s.conf.Entry.Warnf("udp server: listener temporary err: %v", err)
				time.Sleep(time.Millisecond * 100)
				continue
			}
			return fmt.Errorf("udp server: unexpected listener err: %w", err)
		}

		// msg smaller than the dns header, avoid wasting a goroutine
		if n < 12 {
			continue
		}

		q := new(dns.Msg)
		if err := q.Unpack(readBuf[:n]); err != nil {
			continue // malformed msg, drop silently
		}

		go func(from net.Addr) {
			queryCtx, cancel := s.conf.queryCtx(listenerCtx)
			defer cancel()

			s.conf.Entry.Debugf("udp server %s: [%v %d]: new query from %s", c.LocalAddr(), q.Question, q.Id, from)

			r, err := h.ServeDNS(queryCtx, q, from)
			if err != nil {
				s.conf.Entry.Warnf("udp server %s: [%v %d]: query failed: %v", c.LocalAddr(), q.Question, q.Id, err)
				return
			}
			if r == nil { // dropped
				return
			}

			var udpSize int
			if opt := q.IsEdns0(); opt != nil {
				udpSize = int(opt.Hdr.Class)
			} else {
				udpSize = dns.MinMsgSize
			}
			r.Truncate(udpSize)

			rRaw, err := r.Pack()
			if err != nil {
				s.conf.Entry.Warnf("udp server %s: [%v %d]: failed to pack reply: %v", c.LocalAddr(), q.Question, q.Id, err)
				return
			}

			c.SetWriteDeadline(time.Now().Add(serverUDPWriteTimeout))
			if _, err := c.WriteTo(rRaw, from); err != nil {
				s.conf.Entry.Warnf("udp server %s: [%v %d]: failed to send reply back: %v", c.LocalAddr(), q.Question, q.Id, err)
			}
		}(from)
	}
}

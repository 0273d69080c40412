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
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

type Server interface {
	ListenAndServe(h Handler) error
}

// Handler answers one inbound message. A nil reply with a nil error means
// the message is dropped silently, no bytes go back to the client.
type Handler interface {
	ServeDNS(ctx context.Context, q *dns.Msg, from net.Addr) (r *dns.Msg, err error)
}

type Config struct {
	// listener for the tcp server
	Listener net.Listener

	// socket for the udp server
	PacketConn net.PacketConn

	// per-message handler budget. Zero means the handler bounds itself
	// (each question carries its own deadline).
	QueryTimeout time.Duration

	// tcp idle timeout
	IdleTimeout time.Duration

	// udp read buffer size
	MaxUDPPayloadSize int

	Entry *logrus.Entry
}

func (c *Config) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.QueryTimeout > 0 {
		return context.WithTimeout(parent, c.QueryTimeout)
	}
	return context.WithCancel(parent)
}

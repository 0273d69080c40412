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
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/miekg/dns"
)

const (
	serverTCPReadTimeout  = time.Second * 8
	serverTCPWriteTimeout = time.Second
)

type tcpServer struct {
	conf    *Config
	timeout time.Duration
}

func NewTCPServer(conf *Config) Server {
	s := &tcpServer{conf: conf}
	if conf.IdleTimeout > 0 {
		s.timeout = conf.IdleTimeout
	} else {
		s.timeout = serverTCPReadTimeout
	}
	return s
}

func (s *tcpServer) ListenAndServe(h Handler) error {
	listenerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := s.conf.Listener
	for {
		c, err := l.Accept()
		if err != nil {
			netErr, ok := err.(net.Error)
			if ok && netErr.Temporary() {
				s.conf.Entry.Warnf("tcp server: listener temporary err: %v", err)
				time.Sleep(time.Millisecond * 100)
				continue
			}
			return fmt.Errorf("tcp server: unexpected listener err: %w", err)
		}

		go func() {
			defer c.Close()
			tcpConnCtx, cancel := context.WithCancel(listenerCtx)
			defer cancel()

			for {
				c.SetReadDeadline(time.Now().Add(s.timeout))
				q, err := readMsgFromTCP(c)
				if err != nil {
					return // read err, close the conn
				}

				go func() {
					queryCtx, cancel := s.conf.queryCtx(tcpConnCtx)
					defer cancel()

					s.conf.Entry.Debugf("tcp server %s: [%v %d]: new query from %s", l.Addr(), q.Question, q.Id, c.RemoteAddr())

					r, err := h.ServeDNS(queryCtx, q, c.RemoteAddr())
					if err != nil {
						s.conf.Entry.Warnf("tcp server %s: [%v %d]: query failed: %v", l.Addr(), q.Question, q.Id, err)
						return
					}
					if r == nil { // dropped
						return
					}

					c.SetWriteDeadline(time.Now().Add(serverTCPWriteTimeout))
					if err := writeMsgToTCP(c, r); err != nil {
						s.conf.Entry.Warnf("tcp server %s: [%v %d]: failed to send reply back: %v", l.Addr(), q.Question, q.Id, err)
					}
				}()
			}
		}()
	}
}

// readMsgFromTCP reads one length-prefixed dns msg from c.
func readMsgFromTCP(c io.Reader) (*dns.Msg, error) {
	lengthRaw := make([]byte, 2)
	if _, err := io.ReadFull(c, lengthRaw); err != nil {
		return nil, err
	}

	// dns headerSize
	length := binary.BigEndian.Uint16(lengthRaw)
	if length < 12 {
		return nil, dns.ErrShortRead
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(c, buf); err != nil {
		return nil, err
	}

	q := new(dns.Msg)
	if err := q.Unpack(buf); err != nil {
		return nil, err
	}
	return q, nil
}

// writeMsgToTCP packs m with its length prefix and writes it in one call,
// replies from concurrent queries on the same conn must not interleave.
func writeMsgToTCP(c io.Writer, m *dns.Msg) error {
	raw, err := m.Pack()
	if err != nil {
		return err
	}

	buf := make([]byte, 2+len(raw))
	binary.BigEndian.PutUint16(buf, uint16(len(raw)))
	copy(buf[2:], raw)
	_, err = c.Write(buf)
	return err
}

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
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

type echoHandler struct{}

func (echoHandler) ServeDNS(_ context.Context, q *dns.Msg, _ net.Addr) (*dns.Msg, error) {
	r := new(dns.Msg)
	r.SetReply(q)
	r.Authoritative = true
	r.Answer = append(r.Answer, &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   q.Question[0].Name,
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    60,
		},
		Txt: []string{"pong"},
	})
	return r, nil
}

func testEntry() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(l)
}

func exchange(t *testing.T, network, addr string) *dns.Msg {
	t.Helper()

	q := new(dns.Msg)
	q.SetQuestion("ping.mashb1t.de.", dns.TypeTXT)

	c := &dns.Client{Net: network, Timeout: time.Second * 2}
	r, _, err := c.Exchange(q, addr)
	if err != nil {
		t.Fatalf("exchange over %s: %v", network, err)
	}
	return r
}

func checkReply(t *testing.T, r *dns.Msg) {
	t.Helper()
	if !r.Authoritative {
		t.Fatal("reply is not authoritative")
	}
	if len(r.Answer) != 1 {
		t.Fatalf("got %d answers, want 1", len(r.Answer))
	}
	txt, ok := r.Answer[0].(*dns.TXT)
	if !ok || txt.Txt[0] != "pong" {
		t.Fatalf("unexpected answer: %v", r.Answer[0])
	}
}

func TestUDPServer(t *testing.T) {
	c, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	s := NewUDPServer(&Config{PacketConn: c, Entry: testEntry()})
	go s.ListenAndServe(echoHandler{})

	checkReply(t, exchange(t, "udp", c.LocalAddr().String()))
}

func TestTCPServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	s := NewTCPServer(&Config{Listener: l, Entry: testEntry()})
	go s.ListenAndServe(echoHandler{})

	checkReply(t, exchange(t, "tcp", l.Addr().String()))
}

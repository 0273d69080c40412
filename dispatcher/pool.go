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
	"sync"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

var requestLoggerPool = sync.Pool{
	New: func() interface{} {
		f := make(logrus.Fields, 3+2) // default is three fields, we add 2 more
		f["id"] = nil
		f["question"] = nil
		e := &logrus.Entry{
			Data: f,
		}
		return e
	},
}

func (d *Dispatcher) getRequestLogger(q *dns.Msg) *logrus.Entry {
	entry := requestLoggerPool.Get().(*logrus.Entry)
	f := entry.Data
	f["id"] = q.Id
	f["question"] = q.Question
	entry.Logger = d.entry.Logger
	return entry
}

func releaseRequestLogger(entry *logrus.Entry) {
	f := entry.Data
	f["id"] = nil
	f["question"] = nil
	entry.Logger = nil
	requestLoggerPool.Put(entry)
}

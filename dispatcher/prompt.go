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
	"fmt"
	"strings"
)

// dnsSafePrompt turns a question name into the instruction sent to the
// backend: the trailing dot and the serving domain suffix are stripped, the
// remaining presentation-format escapes are decoded, and the cleaned text
// is wrapped into a plain-text instruction bounded by maxChars.
func dnsSafePrompt(name, domain string, maxChars int) string {
	name = strings.TrimSuffix(name, ".")
	name = strings.TrimSuffix(name, domain)
	return fmt.Sprintf("Answer in %d characters or less, no markdown formatting: %s", maxChars, dnsUnescape(name))
}

// dnsUnescape decodes the \DDD and \X escapes of a presentation-format dns
// name. The three digits are decimal, per RFC 1035 master file syntax, so
// "hello\032world" becomes "hello world".
func dnsUnescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}

	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b = append(b, s[i])
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			n := int(s[i+1]-'0')*100 + int(s[i+2]-'0')*10 + int(s[i+3]-'0')
			b = append(b, byte(n))
			i += 3
			continue
		}
		if i+1 < len(s) { // \. \\ etc.
			b = append(b, s[i+1])
			i++
			continue
		}
		b = append(b, '\\') // dangling backslash at the end, keep it
	}
	return string(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

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

// a single TXT character-string holds at most 255 bytes
const maxTXTStringLen = 255

// splitTXT splits s into the consecutive ≤255-byte strings a TXT record is
// built from, in order, with no gaps and no overlap. TXT RDATA needs at
// least one character-string, so empty input yields one empty string.
// Splitting is purely byte based and may cut inside a multi-byte rune.
func splitTXT(s string) []string {
	if len(s) == 0 {
		return []string{""}
	}

	out := make([]string, 0, (len(s)+maxTXTStringLen-1)/maxTXTStringLen)
	for len(s) > maxTXTStringLen {
		out = append(out, s[:maxTXTStringLen])
		s = s[maxTXTStringLen:]
	}
	return append(out, s)
}

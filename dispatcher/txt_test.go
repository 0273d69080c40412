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
	"strings"
	"testing"
)

func Test_splitTXT(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLens []int
	}{
		{"empty yields one empty string", "", []int{0}},
		{"short", "hi", []int{2}},
		{"exactly one string", strings.Repeat("a", 255), []int{255}},
		{"one byte over", strings.Repeat("a", 256), []int{255, 1}},
		{"600 bytes", strings.Repeat("a", 600), []int{255, 255, 90}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitTXT(tt.in)
			if len(got) != len(tt.wantLens) {
				t.Fatalf("got %d strings, want %d", len(got), len(tt.wantLens))
			}
			for i, s := range got {
				if len(s) != tt.wantLens[i] {
					t.Errorf("string %d has length %d, want %d", i, len(s), tt.wantLens[i])
				}
			}
			if strings.Join(got, "") != tt.in {
				t.Error("concatenating the strings does not reproduce the input")
			}
		})
	}
}

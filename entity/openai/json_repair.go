// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"strings"
	"unicode"
)

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON fixes the JSON mistakes small models make most often: a key
// missing its opening quote (`{text":`) and a trailing comma before a
// closing bracket or brace.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	for i := 0; i < len(in); {
		ch := in[i]

		if ch == ',' {
			j := i + 1
			for j < len(in) && unicode.IsSpace(in[j]) {
				j++
			}
			if j < len(in) && (in[j] == ']' || in[j] == '}') {
				i = j
				continue
			}
		}

		if ch != '{' && ch != ',' {
			out = append(out, ch)
			i++
			continue
		}

		out = append(out, ch)
		i++
		for i < len(in) && unicode.IsSpace(in[i]) {
			out = append(out, in[i])
			i++
		}

		if i < len(in) && isLetter(in[i]) {
			start := i
			for i < len(in) && (isLetter(in[i]) || in[i] == '_') {
				i++
			}
			if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
				out = append(out, '"')
			}
			out = append(out, in[start:i]...)
		}
	}

	return string(out)
}

// cleanInput collapses runs of whitespace and drops control characters.
// Casing and punctuation are kept because entity boundaries depend on them.
func cleanInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

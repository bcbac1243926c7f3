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

// Package entity extracts named entities from raw document text.
//
// A Recognizer is the handle to a loaded entity-recognition model. It is
// created once at startup, never mutated afterwards, and passed explicitly to
// Extract, which restricts the model's output to the allow-listed categories
// and deduplicates it.
//
// Implementations live in subpackages:
//   - prose: pretrained averaged-perceptron model, runs in process
//   - openai: LLM-backed recognizer for OpenAI-compatible endpoints
//   - mock: test double
package entity

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

// Package openai implements entity.Recognizer with an OpenAI-compatible chat
// model. It works with hosted OpenAI as well as local servers such as Ollama,
// LocalAI and vLLM.
//
// The model is prompted in JSON mode with the allowed entity labels and a
// response schema. Malformed responses are repaired where possible and
// retried up to three times.
package openai

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

// Package search finds documents similar to a stored document or to ad hoc
// text.
//
// The Searcher type ranks processed documents by TF-IDF cosine similarity
// and hydrates each hit with its document and strongest tags. Candidates are
// loaded per query, so results always reflect the current store.
package search

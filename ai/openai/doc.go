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


// Package openai talks to an OpenAI-compatible API through langchaingo.
//
// The embedder sends catalog documents and queries to the embedding model
// and rejects empty or wrongly sized vectors. The ranker asks the chat
// model, in JSON mode, to order search candidates the way a pharmacist
// would and to add a short commentary. Malformed replies are repaired
// where possible and retried a bounded number of times.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "ED治療薬")
package openai

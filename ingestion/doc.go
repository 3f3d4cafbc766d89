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


// Package ingestion builds the vector index from a product catalog.
//
// A Pipeline turns every product into its document text, looks the text up
// in the embedding cache, embeds the misses in batches on a worker pool and
// assembles an aligned index.Snapshot in catalog order. Embedding calls are
// rate limited and retried with exponential backoff. A product whose
// embedding still fails is logged and left out of the index.
//
// Run adds change detection: the catalog fingerprint is compared with the
// stored build manifest and an unchanged catalog is not rebuilt unless
// forced.
//
// # Usage
//
//	pipeline, err := ingestion.NewPipeline(embedder, cache, manifests,
//	    ingestion.WithWorkers(4),
//	    ingestion.WithRateLimit(5, 1),
//	    ingestion.WithProgress(os.Stderr),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pipeline.Release()
//
//	result, err := pipeline.Run(ctx, products, "./data/index", false)
package ingestion

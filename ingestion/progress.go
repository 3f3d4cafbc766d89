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


package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress counts products sent to the embedding API and prints a status
// line every interval products. Workers report through Done concurrently.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	total    int
	interval int
	embedded int
	failed   int
	printed  int
	start    time.Time
}

// NewProgress creates a progress reporter for total products. A nil writer
// discards output.
func NewProgress(w io.Writer, total, interval int) *Progress {
	if w == nil {
		w = io.Discard
	}
	return &Progress{w: w, total: total, interval: max(interval, 1), start: time.Now()}
}

// Done records a finished batch.
func (p *Progress) Done(embedded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.embedded += embedded
	p.failed += failed
	if n := p.processed(); n-p.printed >= p.interval {
		p.printed = n
		p.print("\r")
	}
}

// Counts returns the embedded and failed totals so far.
func (p *Progress) Counts() (embedded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedded, p.failed
}

// Finish prints the final line and returns the elapsed time.
func (p *Progress) Finish() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.print("\r")
	fmt.Fprintln(p.w)
	return time.Since(p.start)
}

func (p *Progress) processed() int {
	return min(p.embedded+p.failed, p.total)
}

// print must be called with the lock held.
func (p *Progress) print(prefix string) {
	n := p.processed()
	elapsed := time.Since(p.start)

	pct := 100.0
	if p.total > 0 {
		pct = float64(n) * 100 / float64(p.total)
	}
	perSec := 0.0
	if s := elapsed.Seconds(); s > 0 {
		perSec = float64(n) / s
	}
	eta := "-"
	if perSec > 0 && n < p.total {
		eta = time.Duration(float64(p.total-n) / perSec * float64(time.Second)).Round(time.Second).String()
	}

	fmt.Fprintf(p.w, "%sembedded %d/%d products (%.1f%%), %d failed, %.1f/s, eta %s",
		prefix, n, p.total, pct, p.failed, perSec, eta)
}

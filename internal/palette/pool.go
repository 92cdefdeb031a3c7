package palette

import (
	"sync"
	"sync/atomic"

	"github.com/adewale/smartselect/internal/models"
)

// defaultPoolWorkers matches the spec's default parallel bulk worker
// count (§4.5).
const defaultPoolWorkers = 4

// Pool runs Extract across a bounded worker pool for batch palette
// extraction, mirroring the indexer's own worker-pool/progress-callback
// pattern (internal/indexer.Engine.decodeAll) generalized from
// "decode image headers" to "extract palettes."
type Pool struct {
	extractor   *Extractor
	workerCount int
	shutdown    int32
}

// NewPool builds a Pool bound to extractor, using workerCount goroutines
// (a value <= 0 defaults to 4).
func NewPool(extractor *Extractor, workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = defaultPoolWorkers
	}
	return &Pool{extractor: extractor, workerCount: workerCount}
}

// Shutdown halts further dispatch of not-yet-started tasks. Tasks
// already in flight are allowed to complete or time out on their own,
// per spec §4.5/§5.
func (p *Pool) Shutdown() {
	atomic.StoreInt32(&p.shutdown, 1)
}

func (p *Pool) isShutdown() bool {
	return atomic.LoadInt32(&p.shutdown) == 1
}

// Result pairs a filepath with its extracted palette (nil on a null
// result) for ExtractBatch's output.
type Result struct {
	FilePath string
	Palette  *models.PaletteRecord
	Err      error
}

// ExtractBatch extracts palettes for every path in filepaths across the
// pool's workers, invoking progress after each completed task. Results
// are collected in filepath order once every task is done; callers that
// need streaming results as futures complete should read directly off a
// channel built the same way (this orchestration-level function just
// fixes order for convenience, since the host's batch operations are
// typically followed by a single upsert pass).
func (p *Pool) ExtractBatch(filepaths []string, progress models.ProgressCallback) []Result {
	results := make([]Result, len(filepaths))
	if len(filepaths) == 0 {
		return results
	}

	type job struct {
		index int
		path  string
	}
	jobs := make(chan job, len(filepaths))
	var wg sync.WaitGroup
	var completed int32

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if p.isShutdown() {
					results[j.index] = Result{FilePath: j.path, Err: nil}
					continue
				}
				rec, err := p.extractor.Extract(j.path)
				results[j.index] = Result{FilePath: j.path, Palette: rec, Err: err}

				n := atomic.AddInt32(&completed, 1)
				if progress != nil {
					progress(int(n), len(filepaths), "extracting palettes")
				}
			}
		}()
	}

	for i, fp := range filepaths {
		jobs <- job{index: i, path: fp}
	}
	close(jobs)
	wg.Wait()

	return results
}

package tokenizer

import (
	"runtime"
	"sync"
)

// Result is one input's Tokenize outcome. TokenizeAll stores it at the
// input's own index, so its output lines up with texts even though
// individual texts complete out of order.
type Result struct {
	Tokens []Token
	Err    error
}

// TokenizeAll tokenizes every string in texts concurrently across
// runtime.NumCPU() workers, returning one Result per input in the same
// order as texts. Modeled on the teacher's ParseList/InflectList
// fan-out/fan-in batch methods.
func (t *Tokenizer) TokenizeAll(texts []string) []Result {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	workers := runtime.NumCPU()
	if workers > len(texts) {
		workers = len(texts)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				tokens, err := t.Tokenize(texts[i])
				results[i] = Result{Tokens: tokens, Err: err}
			}
		}()
	}

	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

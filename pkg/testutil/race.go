package testutil

import "sync"

// RaceResult tallies a Race. Every call lands in exactly one bucket.
type RaceResult struct {
	Winners int
	Losers  int
	Errors  []error
}

// Race releases n goroutines at once against attempt and tallies who won.
// It is for first-writer-wins stores: exactly one winner is the usual
// assertion.
func Race(n int, attempt func(i int) (won bool, err error)) RaceResult {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		out   RaceResult
		start = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			won, err := attempt(i)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				out.Errors = append(out.Errors, err)
			case won:
				out.Winners++
			default:
				out.Losers++
			}
		}(i)
	}
	close(start)
	wg.Wait()
	return out
}

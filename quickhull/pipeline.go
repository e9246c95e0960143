package quickhull

import "sync"

// task runs fn over data split into contiguous chunks, one per worker.
// fn receives the index of the element so results can be written to a
// preallocated slice without locking.
func task[T any](workersCount int, data []T, fn func(i int, data T)) {
	dataSize := len(data)
	if workersCount <= 1 || dataSize < 2*workersCount {
		for i := range data {
			fn(i, data[i])
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i, data[i])
			}
		}(workerID*chunkSize, min((workerID+1)*chunkSize, dataSize))
	}
	wg.Wait()
}

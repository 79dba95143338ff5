package service

import "container/heap"

// queueItem is one enqueued job reference. Seq preserves submission order so
// equal priorities drain FIFO
type queueItem struct {
	jobID    string
	tenantID string
	priority int
	seq      uint64
}

// jobQueue is a max-heap on priority with FIFO tie-break
type jobQueue []queueItem

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*jobQueue)(nil)

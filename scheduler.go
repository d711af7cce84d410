package rxl

import (
	"container/heap"
)

type scheduledTask struct {
	deadline int64
	task     func()
}

// scheduler is the loop-owned calendar of delayed tasks. Its earliest
// deadline drives the timeout submission.
type scheduler struct {
	tasks scheduledHeap
}

func (s *scheduler) schedule(deadlineNanos int64, task func()) {
	heap.Push(&s.tasks, &scheduledTask{deadline: deadlineNanos, task: task})
}

// nextDeadline returns the earliest scheduled deadline, noneDeadline when
// nothing is on the calendar.
func (s *scheduler) nextDeadline() int64 {
	if len(s.tasks) == 0 {
		return noneDeadline
	}
	return s.tasks[0].deadline
}

func (s *scheduler) hasExpired(nowNanos int64) bool {
	return len(s.tasks) > 0 && s.tasks[0].deadline <= nowNanos
}

func (s *scheduler) expired(nowNanos int64) (func(), bool) {
	if !s.hasExpired(nowNanos) {
		return nil, false
	}
	st := heap.Pop(&s.tasks).(*scheduledTask)
	return st.task, true
}

type scheduledHeap []*scheduledTask

func (h scheduledHeap) Len() int {
	return len(h)
}

func (h scheduledHeap) Less(i, j int) bool {
	return h[i].deadline < h[j].deadline
}

func (h scheduledHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *scheduledHeap) Push(x any) {
	*h = append(*h, x.(*scheduledTask))
}

func (h *scheduledHeap) Pop() any {
	old := *h
	n := len(old)
	st := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return st
}

package catalog

// JobQueue is an ordered, resumable queue of crawl jobs. It is part of the
// serialized session state, so the backing slice is exported.
type JobQueue struct {
	Jobs []Job `json:"jobs"`
}

// Push appends jobs in order.
func (q *JobQueue) Push(jobs ...Job) {
	q.Jobs = append(q.Jobs, jobs...)
}

// Peek returns the head of the queue without removing it. The second
// return value is false when the queue is empty.
func (q *JobQueue) Peek() (Job, bool) {
	if len(q.Jobs) == 0 {
		return Job{}, false
	}
	return q.Jobs[0], true
}

// Pop removes and returns the head of the queue. The second return value is
// false when the queue is empty.
func (q *JobQueue) Pop() (Job, bool) {
	if len(q.Jobs) == 0 {
		return Job{}, false
	}
	job := q.Jobs[0]
	q.Jobs = q.Jobs[1:]
	return job, true
}

// Len returns the number of pending jobs.
func (q *JobQueue) Len() int {
	return len(q.Jobs)
}

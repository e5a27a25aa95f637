package telegram

import (
	"log/slog"
	"sync"
)

// chatQueue runs jobs one at a time per chat, in arrival order, while
// different chats proceed concurrently. A worker goroutine exists only while
// its chat has pending jobs.
type chatQueue struct {
	mu      sync.Mutex
	pending map[int64][]func()
	wg      sync.WaitGroup
}

func newChatQueue() *chatQueue {
	return &chatQueue{pending: make(map[int64][]func())}
}

// Enqueue schedules job after every job already queued for chatID.
func (q *chatQueue) Enqueue(chatID int64, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if jobs, active := q.pending[chatID]; active {
		q.pending[chatID] = append(jobs, job)
		return
	}
	q.pending[chatID] = []func(){job}
	q.wg.Add(1)
	go q.work(chatID)
}

// Wait blocks until every queued job has finished.
func (q *chatQueue) Wait() {
	q.wg.Wait()
}

func (q *chatQueue) work(chatID int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		jobs := q.pending[chatID]
		if len(jobs) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		q.pending[chatID] = jobs[1:]
		q.mu.Unlock()

		run(chatID, job)
	}
}

func run(chatID int64, job func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("chatQueue: job panicked", "chat_id", chatID, "panic", r)
		}
	}()
	job()
}

package notify

import (
	"log"
	"sync"
	"time"
)

// Notification tells a user that their reservation was fulfilled and the
// book is ready to be requested.
type Notification struct {
	UserUid        string
	BookUid        string
	ReservationUid string
	CreatedAt      time.Time
}

// Queue is an in-memory FIFO of pending notifications, drained by a
// background worker.
type Queue struct {
	items []*Notification
	mu    sync.Mutex
}

func NewQueue() *Queue {
	return &Queue{
		items: make([]*Notification, 0),
	}
}

func (q *Queue) Enqueue(n *Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
}

func (q *Queue) Dequeue() *Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// StartWorker drains the queue on an interval, passing each notification
// to deliver. The returned func stops the worker.
func (q *Queue) StartWorker(interval time.Duration, deliver func(*Notification)) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				for n := q.Dequeue(); n != nil; n = q.Dequeue() {
					deliver(n)
				}
			}
		}
	}()
	return func() { close(done) }
}

// LogDelivery is the default delivery used when no mail or push channel is
// configured.
func LogDelivery(n *Notification) {
	log.Printf("Reservation %s fulfilled: book %s is ready for user %s",
		n.ReservationUid, n.BookUid, n.UserUid)
}

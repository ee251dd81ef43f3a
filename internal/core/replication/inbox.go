package replication

import (
	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/concurrent"
)

// Inbox carries encoded messages from the transport's I/O goroutines to the
// tick thread. Decoding happens on the tick thread when the inbox is drained.
type Inbox struct {
	queue *concurrent.Queue[[]byte]
}

func NewInbox() *Inbox {
	return &Inbox{queue: concurrent.NewQueue[[]byte]()}
}

// Push enqueues payload. The inbox takes ownership of the slice.
func (i *Inbox) Push(payload []byte) {
	i.queue.Push(payload)
}

// Drain returns every pending payload in arrival order.
func (i *Inbox) Drain() [][]byte {
	return i.queue.Drain()
}

func (i *Inbox) Len() int {
	return i.queue.Len()
}

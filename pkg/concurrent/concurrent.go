package concurrent

import (
	"golang.org/x/sync/errgroup"

	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/sequence"
)

// Throttle runs action for each element of the iterator in its own goroutine,
// at most limit at a time, and waits for all of them. It returns the first
// error encountered. A limit of zero or less means no limit.
func Throttle[T any](i *sequence.Iterator[T], limit int, action func(T) error) error {
	var group errgroup.Group
	if limit > 0 {
		group.SetLimit(limit)
	}
	for value := range i.Seq() {
		group.Go(func() error {
			return action(value)
		})
	}
	return group.Wait()
}

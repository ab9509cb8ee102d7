// Package mastodon implements the Mastodon REST API client used to publish
// and retrieve hashtag-addressed content.
package mastodon

import "hash/fnv"

// hashQueue is a bounded FIFO of message hashes used to skip content that was
// already delivered. When the queue is full the oldest hash is evicted, so
// very old reposts can be seen twice; that is acceptable, the layer above
// tolerates duplicates.
type hashQueue struct {
	hashes []uint64
	max    int
}

func newHashQueue(max int) *hashQueue {
	return &hashQueue{max: max}
}

func hashMessage(message string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(message))
	return h.Sum64()
}

// add hashes message and appends it, evicting the oldest entry when full.
func (q *hashQueue) add(message string) uint64 {
	if len(q.hashes) >= q.max {
		q.hashes = q.hashes[1:]
	}
	sum := hashMessage(message)
	q.hashes = append(q.hashes, sum)
	return sum
}

// contains reports whether message was added and not yet evicted.
func (q *hashQueue) contains(message string) bool {
	sum := hashMessage(message)
	for _, h := range q.hashes {
		if h == sum {
			return true
		}
	}
	return false
}

// remove drops the first occurrence of hash, if present.
func (q *hashQueue) remove(hash uint64) {
	for i, h := range q.hashes {
		if h == hash {
			q.hashes = append(q.hashes[:i], q.hashes[i+1:]...)
			return
		}
	}
}

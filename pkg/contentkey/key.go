// Package contentkey implements the lazy, incrementally-hashed
// comparator handle for one file's byte stream (spec "Content Key").
//
// Two keys are compared by an exponentially growing ladder of chunk
// digests: cheap size/early-byte differences are caught in the first
// one or two chunks, while true duplicates require only O(log size)
// reads before the comparator can declare them equal. A key never
// rereads or re-hashes a chunk once it has computed its digest, so
// repeated comparisons against later-discovered keys are cheap.
package contentkey

import (
	"bytes"
	"container/list"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

const digestSize = 32 // BLAKE3-256

// Ladder configures the comparison ladder's starting chunk size and its
// doubling cap. One Ladder is shared by every Key a run constructs, the
// same way one salt is.
type Ladder struct {
	// Min is the first chunk's size, in bytes.
	Min int64
	// Max caps how large a single chunk can grow to after repeated
	// doubling.
	Max int64
}

// DefaultLadder returns the ladder spec.md §3 describes: a 16 KiB
// starting chunk doubling up to a 4 MiB cap.
func DefaultLadder() Ladder {
	return Ladder{Min: 16 * 1024, Max: 4 * 1024 * 1024}
}

// Key is the lazy comparator handle for one inode's content.
type Key struct {
	path string
	size int64
	salt []byte

	ladder Ladder
	lru    *HandleLRU

	file    *os.File
	lruElem *list.Element

	chunks        [][digestSize]byte
	bytesHashed   int64
	nextChunkSize int64
	eof           bool
}

// New builds a Key for path. size must be the file's length as observed
// at enqueue time; the key does not re-stat the file. salt is mixed into
// every chunk digest so that adversarially-crafted collisions computed
// against one run's hash are useless against another's. A zero-value
// ladder is replaced with DefaultLadder, so existing callers that built
// a Key without one keep the spec's original constants.
func New(path string, size int64, salt []byte, ladder Ladder, lru *HandleLRU) *Key {
	if ladder.Min <= 0 || ladder.Max <= 0 {
		ladder = DefaultLadder()
	}
	return &Key{
		path:          path,
		size:          size,
		salt:          salt,
		ladder:        ladder,
		lru:           lru,
		nextChunkSize: ladder.Min,
	}
}

// Size returns the file size this key was constructed with.
func (k *Key) Size() int64 { return k.size }

// Path returns the path this key was opened against.
func (k *Key) Path() string { return k.path }

// Close releases the key's open file handle, if any. Already-computed
// chunk digests are retained (harmless, and cheap) but irrelevant once
// closed, since a closed key is never compared again.
func (k *Key) Close() error {
	if k.file != nil {
		return k.lru.evict(k)
	}
	return nil
}

// closeHandle is called by the LRU when it evicts this key's handle. It
// must not be called directly; it does not remove the key from the LRU's
// bookkeeping.
func (k *Key) closeHandle() error {
	if k.file == nil {
		return nil
	}
	err := k.file.Close()
	k.file = nil
	return err
}

// Compare orders two keys by content: by size first (no I/O), then by
// an increasing-chunk-size digest ladder. Equal digests through EOF on
// both sides means equal content (cryptographic-strength hash, salted,
// so the probability of a false-equal is negligible).
func Compare(a, b *Key) (int, error) {
	if a == b {
		return 0, nil
	}
	if a.size != b.size {
		if a.size < b.size {
			return -1, nil
		}
		return 1, nil
	}

	for i := 0; ; i++ {
		if err := a.ensureChunk(i); err != nil {
			return 0, fmt.Errorf("hashing %q: %w", a.path, err)
		}
		if err := b.ensureChunk(i); err != nil {
			return 0, fmt.Errorf("hashing %q: %w", b.path, err)
		}

		ad, aok := a.chunkAt(i)
		bd, bok := b.chunkAt(i)

		switch {
		case !aok && !bok:
			// Both sides exhausted with every prior chunk equal and
			// sizes equal: content is equal.
			return 0, nil
		case aok != bok:
			// Sizes matched upfront, so this should not occur; treat
			// defensively the same as spec's asymmetric-EOF edge case.
			if !aok {
				return -1, nil
			}
			return 1, nil
		}

		if c := bytes.Compare(ad[:], bd[:]); c != 0 {
			return c, nil
		}
	}
}

// chunkAt returns the digest computed for chunk i, or ok=false if the
// key reached EOF at or before that chunk index.
func (k *Key) chunkAt(i int) ([digestSize]byte, bool) {
	if i >= len(k.chunks) {
		return [digestSize]byte{}, false
	}
	return k.chunks[i], true
}

// ensureChunk computes the digest for chunk i if it has not been
// computed yet. Chunks must be requested in order, which Compare always
// does (it walks i = 0, 1, 2, ... for both keys in lockstep).
func (k *Key) ensureChunk(i int) error {
	if i < len(k.chunks) || k.eof {
		return nil
	}
	if i != len(k.chunks) {
		return fmt.Errorf("contentkey: chunk %d requested out of order for %q", i, k.path)
	}

	remaining := k.size - k.bytesHashed
	if remaining <= 0 {
		k.eof = true
		return nil
	}

	want := k.nextChunkSize
	if want > remaining {
		want = remaining
	}

	data, err := k.readChunk(k.bytesHashed, want)
	if err != nil {
		return err
	}

	h := blake3.New()
	h.Write(k.salt)
	h.Write(data)
	var sum [digestSize]byte
	copy(sum[:], h.Sum(nil))

	k.chunks = append(k.chunks, sum)
	k.bytesHashed += want
	if k.bytesHashed >= k.size {
		k.eof = true
	}

	next := want * 2
	if next > k.ladder.Max {
		next = k.ladder.Max
	}
	k.nextChunkSize = next
	return nil
}

// readChunk reads exactly n bytes starting at offset, opening (or
// reusing, via the LRU) the key's file handle.
func (k *Key) readChunk(offset, n int64) ([]byte, error) {
	f, err := k.handle()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %q: %w", k.path, err)
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("read %q at %d: %w", k.path, offset, err)
	}
	return buf, nil
}

// handle returns the key's open file handle, opening it lazily (and
// registering it with the LRU cap) on first use.
func (k *Key) handle() (*os.File, error) {
	if k.file != nil {
		if k.lru != nil {
			k.lru.touch(k)
		}
		return k.file, nil
	}

	f, err := os.Open(k.path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", k.path, err)
	}
	k.file = f
	if k.lru != nil {
		k.lru.open(k)
	}
	return f, nil
}

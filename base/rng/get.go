package rng

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

const (
	reseedAfterSeconds = 600     // ten minutes
	reseedAfterBytes   = 1048576 // one megabyte
)

// ErrNotReady is returned while the generator is not yet seeded.
var ErrNotReady = errors.New("rng is not ready yet")

var (
	// Reader provides a global instance to read from the RNG.
	Reader io.Reader

	rngBytesRead uint64
	rngLastFeed  = time.Now()
)

// reader provides an io.Reader interface.
type reader struct{}

func init() {
	Reader = reader{}
}

func checkEntropy() (err error) {
	if !rngReady {
		return ErrNotReady
	}
	if rngBytesRead > reseedAfterBytes ||
		int(time.Since(rngLastFeed).Seconds()) > reseedAfterSeconds {
		select {
		case r := <-rngFeeder:
			rng.Reseed(r)
			rngBytesRead = 0
			rngLastFeed = time.Now()
		case <-time.After(1 * time.Second):
			return errors.New("failed to get new entropy")
		}
	}
	return nil
}

// Read reads random bytes into the supplied byte slice.
func Read(b []byte) (n int, err error) {
	rngLock.Lock()
	defer rngLock.Unlock()

	if err := checkEntropy(); err != nil {
		return 0, err
	}

	rngBytesRead += uint64(len(b))
	return copy(b, rng.PseudoRandomData(uint(len(b)))), nil
}

// Read implements the io.Reader interface.
func (r reader) Read(b []byte) (n int, err error) {
	return Read(b)
}

// Bytes allocates a new byte slice of given length and fills it with random data.
func Bytes(n int) ([]byte, error) {
	rngLock.Lock()
	defer rngLock.Unlock()

	if err := checkEntropy(); err != nil {
		return nil, err
	}

	rngBytesRead += uint64(n)
	return rng.PseudoRandomData(uint(n)), nil
}

// Number returns a random number from 0 to (incl.) max.
func Number(max uint64) (uint64, error) {
	secureLimit := math.MaxUint64 - (math.MaxUint64 % max)
	max++

	for {
		randomBytes, err := Bytes(8)
		if err != nil {
			return 0, err
		}

		candidate := binary.LittleEndian.Uint64(randomBytes)
		if candidate < secureLimit {
			return candidate % max, nil
		}
	}
}

// Float64 returns a random number in [0.0, 1.0).
func Float64() (float64, error) {
	randomBytes, err := Bytes(8)
	if err != nil {
		return 0, err
	}

	// Use 53 bits, like math/rand does.
	n := binary.LittleEndian.Uint64(randomBytes) >> 11
	return float64(n) / (1 << 53), nil
}

package rng

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aead/serpent"
	"github.com/seehuhn/fortuna"

	"github.com/safing/trackguard/service/mgr"
)

// Rng is the random number generator module.
type Rng struct {
	mgr *mgr.Manager

	instance instance
}

var (
	rng      *fortuna.Generator
	rngLock  sync.Mutex
	rngReady = false

	rngCipher = "aes"
	// Possible values: "aes", "serpent".
)

func newCipher(key []byte) (cipher.Block, error) {
	switch rngCipher {
	case "aes":
		return aes.NewCipher(key)
	case "serpent":
		return serpent.NewCipher(key)
	default:
		return nil, fmt.Errorf("unknown or unsupported cipher: %s", rngCipher)
	}
}

// Start starts the rng module.
func (r *Rng) Start(m *mgr.Manager) error {
	r.mgr = m
	rngLock.Lock()
	defer rngLock.Unlock()

	rng = fortuna.NewGenerator(newCipher)
	if rng == nil {
		return errors.New("failed to initialize rng")
	}

	// Seed from the OS before anything may read.
	osEntropy := make([]byte, minFeedEntropy/8)
	if _, err := rand.Read(osEntropy); err != nil {
		return fmt.Errorf("could not read entropy from os: %w", err)
	}
	rng.Reseed(osEntropy)

	// Mark as ready.
	rngReady = true

	// random source: OS
	m.Go("os rng feeder", osFeeder)

	return nil
}

// Stop stops the rng module.
func (r *Rng) Stop(m *mgr.Manager) error {
	return nil
}

var (
	module     *Rng
	shimLoaded atomic.Bool
)

// New returns a new rng module.
func New(instance instance) (*Rng, error) {
	if !shimLoaded.CompareAndSwap(false, true) {
		return nil, errors.New("only one instance allowed")
	}

	module = &Rng{
		instance: instance,
	}

	return module, nil
}

type instance interface{}

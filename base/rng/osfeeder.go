package rng

import (
	"crypto/rand"
	"fmt"

	"github.com/safing/trackguard/service/mgr"
)

const minFeedEntropy = 256

var rngFeeder = make(chan []byte)

func osFeeder(ctx *mgr.WorkerCtx) error {
	entropyBytes := minFeedEntropy / 8

	for {
		// gather
		osEntropy := make([]byte, entropyBytes)
		n, err := rand.Read(osEntropy)
		if err != nil {
			return fmt.Errorf("could not read entropy from os: %w", err)
		}
		if n != entropyBytes {
			return fmt.Errorf("could not read enough entropy from os: got only %d bytes instead of %d", n, entropyBytes)
		}

		// feed
		select {
		case rngFeeder <- osEntropy:
		case <-ctx.Done():
			return nil
		}
	}
}

// Package guard flips the runtime into test mode when imported for its
// side effect. Tests that build full application wiring import it so a
// stray main() path never starts servers.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("DUKAPOS_TEST_MODE") == "" {
			_ = os.Setenv("DUKAPOS_TEST_MODE", "1")
		}
	})
}

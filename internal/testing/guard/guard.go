// Package guard switches binaries into test mode when imported by a test.
//
//	import _ "github.com/costdesk/costdesk/internal/testing/guard"
package guard

import (
	"os"
	"sync"
)

// EnvKey is the variable read by app.InTestMode.
const EnvKey = "COSTDESK_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvKey) == "" {
			_ = os.Setenv(EnvKey, "1")
		}
	})
}

package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LIMPIO_TEST_MODE") == "" {
			_ = os.Setenv("LIMPIO_TEST_MODE", "1")
		}
	})
}

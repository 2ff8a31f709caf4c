package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	locks := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("5511999990001")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLockIndependentKeys(t *testing.T) {
	locks := New()

	unlockA := locks.Lock("conversation-a")
	defer unlockA()

	// A held lock on one conversation must not block another
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("conversation-b")
		unlockB()
		close(done)
	}()
	<-done
}

func TestLockReleasedEntryIsReusable(t *testing.T) {
	locks := New()

	unlock := locks.Lock("key")
	unlock()

	unlock = locks.Lock("key")
	unlock()
}

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	s := NewStore("")
	assert.Equal(t, "", s.CurrentUser())

	s.Login("alice")
	assert.Equal(t, "alice", s.CurrentUser())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CurrentUser()
		}()
	}
	wg.Wait()

	s.Logout()
	assert.Equal(t, "", s.CurrentUser())
	assert.Equal(t, "bob", Static("bob").CurrentUser())
}

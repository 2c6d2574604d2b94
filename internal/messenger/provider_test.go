package messenger

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/messenger/internal/testutils"
)

func countingFactory(calls *atomic.Int32) Factory {
	return func() (Deps, error) {
		calls.Add(1)
		return Deps{Transport: testutils.NewFakeTransport()}, nil
	}
}

func TestProvider_ConcurrentFirstAccess(t *testing.T) {
	var calls atomic.Int32
	p := NewProvider(countingFactory(&calls))

	const n = 32
	got := make([]*Messenger, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := p.Instance()
			assert.NoError(t, err)
			got[i] = m
		}(i)
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, m := range got {
		assert.Same(t, got[0], m)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvider_SecondConstructionFails(t *testing.T) {
	var calls atomic.Int32
	p := NewProvider(countingFactory(&calls))

	first, err := p.New()
	require.NoError(t, err)

	second, err := p.New()
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	var initErr *InitError
	assert.True(t, errors.As(err, &initErr))

	m, err := p.Instance()
	require.NoError(t, err)
	assert.Same(t, first, m)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvider_FailedConstructionRetries(t *testing.T) {
	fail := true
	p := NewProvider(func() (Deps, error) {
		if fail {
			return Deps{}, errors.New("not yet")
		}
		return Deps{Transport: testutils.NewFakeTransport()}, nil
	})

	_, err := p.Instance()
	require.Error(t, err)
	assert.False(t, p.Ready())

	fail = false
	m, err := p.Instance()
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.True(t, p.Ready())
	require.NoError(t, p.Close())
}

func TestDefaultProvider(t *testing.T) {
	resetDefault := func() {
		defaultMu.Lock()
		defaultProvider = nil
		defaultMu.Unlock()
	}
	resetDefault()
	t.Cleanup(resetDefault)

	_, err := GetInstance()
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = New()
	assert.ErrorIs(t, err, ErrNotConfigured)

	var calls atomic.Int32
	require.NoError(t, Configure(countingFactory(&calls)))
	require.NoError(t, Configure(countingFactory(&calls)), "reconfiguring before first use is allowed")

	m, err := GetInstance()
	require.NoError(t, err)
	again, err := GetInstance()
	require.NoError(t, err)
	assert.Same(t, m, again)

	_, err = New()
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.ErrorIs(t, Configure(countingFactory(&calls)), ErrAlreadyInitialized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvider_RetryAfterPartialBind(t *testing.T) {
	fake := testutils.NewFakeTransport()
	fake.FailListenOnce("VISetStatus", errors.New("transient subscribe failure"))
	p := NewProvider(FromDeps(Deps{Transport: fake}))

	_, err := p.Instance()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind VISetStatus")
	assert.False(t, p.Ready())
	assert.Empty(t, fake.Bound(), "names bound before the failure are released")

	m, err := p.Instance()
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Len(t, fake.Bound(), 13)
}

func TestDefaultProvider_ConfigureWaitsForConstruction(t *testing.T) {
	defaultMu.Lock()
	defaultProvider = nil
	defaultMu.Unlock()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultProvider = nil
		defaultMu.Unlock()
	})

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, Configure(func() (Deps, error) {
		close(started)
		<-release
		return Deps{Transport: testutils.NewFakeTransport()}, nil
	}))

	got := make(chan *Messenger, 1)
	go func() {
		m, err := GetInstance()
		assert.NoError(t, err)
		got <- m
	}()
	<-started

	var replacementCalls atomic.Int32
	reconfigured := make(chan error, 1)
	go func() { reconfigured <- Configure(countingFactory(&replacementCalls)) }()

	select {
	case err := <-reconfigured:
		t.Fatalf("Configure returned during construction: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	first := <-got
	require.NotNil(t, first)
	assert.ErrorIs(t, <-reconfigured, ErrAlreadyInitialized)

	again, err := GetInstance()
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Zero(t, replacementCalls.Load())
}

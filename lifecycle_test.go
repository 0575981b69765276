package hookbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingListener(name string, calls *atomic.Int32) *Listener[string] {
	return Observer(name, func(_ context.Context, _ string) error {
		calls.Add(1)
		return nil
	})
}

func mustFire(t *testing.T, hooks *Hooks[string], name Key) {
	t.Helper()
	_, err := hooks.Fire(context.Background(), name, "data")
	require.NoError(t, err)
}

func TestRegisterOnce(t *testing.T) {
	for _, name := range []Key{TestTransform, TestNotify, TestGather} {
		t.Run(name, func(t *testing.T) {
			hooks, _ := newTestHooks[string]()
			defer hooks.Close()

			var calls atomic.Int32
			require.NoError(t, hooks.RegisterOnce(name, countingListener("once", &calls)))
			assert.Equal(t, int64(1), hooks.Metrics().OneShotPending)

			mustFire(t, hooks, name)
			assert.Equal(t, int32(1), calls.Load())
			assert.False(t, hooks.HasListeners(name))
			assert.Equal(t, int64(0), hooks.Metrics().OneShotPending)

			mustFire(t, hooks, name)
			mustFire(t, hooks, name)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestRegisterOnceKeepsOtherListeners(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	var onceCalls, persistentCalls atomic.Int32
	require.NoError(t, hooks.RegisterOnce(TestNotify, countingListener("once", &onceCalls)))
	require.NoError(t, hooks.Register(TestNotify, countingListener("persistent", &persistentCalls)))

	mustFire(t, hooks, TestNotify)
	mustFire(t, hooks, TestNotify)

	assert.Equal(t, int32(1), onceCalls.Load())
	assert.Equal(t, int32(2), persistentCalls.Load())
	assert.Equal(t, 1, hooks.Count(TestNotify))
}

func TestRegisterOnceOnlyPrunesItsHook(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	var calls atomic.Int32
	l := countingListener("once", &calls)
	require.NoError(t, hooks.RegisterOnce(TestNotify, l))

	mustFire(t, hooks, "action:test.other")
	assert.True(t, hooks.HasListeners(TestNotify))

	mustFire(t, hooks, TestNotify)
	assert.False(t, hooks.HasListeners(TestNotify))
}

func TestRegisterOnceFailingListenerIsRemoved(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	failing := Func("failing", func(_ context.Context, s string) (string, error) {
		return "", errors.New("boom")
	})
	require.NoError(t, hooks.RegisterOnce(TestTransform, failing))

	result, err := hooks.Fire(context.Background(), TestTransform, "data")
	require.NoError(t, err)
	assert.Equal(t, "data", result)
	assert.False(t, hooks.HasListeners(TestTransform))
}

func TestRegisterOnceUnknownKindIsPruned(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	var calls atomic.Int32
	require.NoError(t, hooks.One(TestUnknownKind, countingListener("once", &calls)))

	mustFire(t, hooks, TestUnknownKind)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, hooks.HasListeners(TestUnknownKind))
}

func TestRegisterOnceDuringFire(t *testing.T) {
	for _, name := range []Key{TestTransform, TestNotify, TestGather} {
		t.Run(name, func(t *testing.T) {
			hooks, _ := newTestHooks[string]()
			defer hooks.Close()

			var calls atomic.Int32
			once := countingListener("late-once", &calls)

			var registered atomic.Bool
			binder := Observer("binder", func(_ context.Context, _ string) error {
				if registered.CompareAndSwap(false, true) {
					return hooks.RegisterOnce(name, once)
				}
				return nil
			})
			require.NoError(t, hooks.Register(name, binder))

			// Registered mid-fire: skipped by this fire, consumed by the next
			mustFire(t, hooks, name)
			assert.Equal(t, int32(0), calls.Load())
			assert.Equal(t, 2, hooks.Count(name))

			mustFire(t, hooks, name)
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, 1, hooks.Count(name))

			mustFire(t, hooks, name)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestRegisterOnceWhileSlowFireRuns(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := Async("slow", func(_ context.Context, s string) (string, error) {
		close(entered)
		<-release
		return s, nil
	})
	require.NoError(t, hooks.Register(TestGather, slow))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = hooks.Fire(context.Background(), TestGather, "data")
	}()

	<-entered
	var calls atomic.Int32
	require.NoError(t, hooks.RegisterOnce(TestGather, countingListener("once", &calls)))
	close(release)
	<-done

	assert.Equal(t, int64(1), hooks.Metrics().OneShotPending)
	assert.Equal(t, int32(0), calls.Load())

	assert.True(t, hooks.Unregister(TestGather, slow))
	mustFire(t, hooks, TestGather)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, hooks.HasListeners(TestGather))
}

func TestRegisterPageScoped(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	var calls atomic.Int32
	require.NoError(t, hooks.RegisterPageScoped(TestNotify, countingListener("page", &calls)))
	assert.Equal(t, int64(1), hooks.Metrics().PageScopedPending)

	for i := 0; i < 3; i++ {
		mustFire(t, hooks, TestNotify)
	}
	assert.Equal(t, int32(3), calls.Load())

	mustFire(t, hooks, PageTransitionStart)
	assert.Equal(t, int64(0), hooks.Metrics().PageScopedPending)

	mustFire(t, hooks, TestNotify)
	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, hooks.HasListeners(TestNotify))
}

func TestPageTransitionKeepsPersistentListeners(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	var pageCalls, persistentCalls atomic.Int32
	require.NoError(t, hooks.OnPage(TestTransform, countingListener("page", &pageCalls)))
	require.NoError(t, hooks.On(TestTransform, countingListener("persistent", &persistentCalls)))

	mustFire(t, hooks, PageTransitionStart)
	mustFire(t, hooks, TestTransform)

	assert.Equal(t, int32(0), pageCalls.Load())
	assert.Equal(t, int32(1), persistentCalls.Load())
}

func TestPageScopedOnTransitionHook(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	var calls atomic.Int32
	require.NoError(t, hooks.RegisterPageScoped(PageTransitionStart, countingListener("leaving-page", &calls)))

	mustFire(t, hooks, PageTransitionStart)
	mustFire(t, hooks, PageTransitionStart)

	// Runs on the transition that removes it, never again
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, hooks.Count(PageTransitionStart))
}

func TestRegisterOncePageScoped(t *testing.T) {
	t.Run("fire consumes it", func(t *testing.T) {
		hooks, _ := newTestHooks[string]()
		defer hooks.Close()

		var calls atomic.Int32
		require.NoError(t, hooks.RegisterOncePageScoped(TestNotify, countingListener("both", &calls)))

		mustFire(t, hooks, TestNotify)
		mustFire(t, hooks, TestNotify)
		assert.Equal(t, int32(1), calls.Load())

		// The stale page-scoped record is dropped without error
		mustFire(t, hooks, PageTransitionStart)
		assert.Equal(t, int64(0), hooks.Metrics().PageScopedPending)
	})

	t.Run("transition consumes it", func(t *testing.T) {
		hooks, _ := newTestHooks[string]()
		defer hooks.Close()

		var calls atomic.Int32
		require.NoError(t, hooks.RegisterOncePageScoped(TestNotify, countingListener("both", &calls)))

		mustFire(t, hooks, PageTransitionStart)
		mustFire(t, hooks, TestNotify)
		assert.Equal(t, int32(0), calls.Load())
	})
}

func TestLifecycleRegistrationErrors(t *testing.T) {
	hooks, _ := newTestHooks[string]()

	assert.ErrorIs(t, hooks.RegisterOnce(TestNotify, nil), ErrNilListener)
	assert.ErrorIs(t, hooks.RegisterPageScoped(TestNotify, nil), ErrNilListener)
	assert.Equal(t, int64(0), hooks.Metrics().OneShotPending)
	assert.Equal(t, int64(0), hooks.Metrics().PageScopedPending)

	require.NoError(t, hooks.Close())

	var calls atomic.Int32
	assert.ErrorIs(t, hooks.RegisterOnce(TestNotify, countingListener("late", &calls)), ErrServiceClosed)
	assert.ErrorIs(t, hooks.RegisterOncePageScoped(TestNotify, countingListener("late", &calls)), ErrServiceClosed)
}

func TestPageTransitionSurvivesClear(t *testing.T) {
	hooks, _ := newTestHooks[string]()
	defer hooks.Close()

	var calls atomic.Int32
	require.NoError(t, hooks.Register(PageTransitionStart, countingListener("nav", &calls)))

	assert.Equal(t, 1, hooks.Clear(PageTransitionStart))
	assert.Equal(t, 1, hooks.Count(PageTransitionStart))

	require.NoError(t, hooks.RegisterPageScoped(TestNotify, countingListener("page", &calls)))
	assert.Equal(t, 1, hooks.ClearAll())

	require.NoError(t, hooks.RegisterPageScoped(TestNotify, countingListener("page", &calls)))
	mustFire(t, hooks, PageTransitionStart)
	assert.False(t, hooks.HasListeners(TestNotify))
	assert.Equal(t, int32(0), calls.Load())
}

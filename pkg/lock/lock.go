// Package lock 提供按 key 串行化的互斥锁。
//
// 工作流引擎在分配项目内任务编号/位置、任务内评论位置时使用它，
// 保证同一 key 的 "读取最大值 + 写入" 步骤线性化。
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout 在等待锁超时时返回
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// Locker 按 key 获取互斥锁，返回的 release 必须调用且只调用一次
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalLocker 进程内实现，适用于单实例部署和测试
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker 创建进程内 Locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ll, ok := l.locks[key]
	if !ok {
		ll = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = ll
	}
	ll.refs++
	l.mu.Unlock()

	select {
	case ll.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-ll.ch
				l.drop(key, ll)
			})
		}, nil
	case <-ctx.Done():
		l.drop(key, ll)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) drop(key string, ll *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ll.refs--
	if ll.refs == 0 {
		delete(l.locks, key)
	}
}

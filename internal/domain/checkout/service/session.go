package service

import (
	"context"
	"sync"
	"time"
)

// session 一个浏览器标签页的结账会话
type session struct {
	id      string
	machine *Machine
	hub     *hub

	mu       sync.Mutex
	lastSeen time.Time
	// verified 恢复出的待支付记录是否已与订单表核对
	verified bool
	// watchGen 区分先后启动的 watcher，旧的退出时不能清掉新的
	watchGen  uint64
	stopWatch context.CancelFunc
	watchDone chan struct{}
}

func newSession(id string, m *Machine, now time.Time) *session {
	return &session{id: id, machine: m, hub: newHub(), lastSeen: now}
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *session) isVerified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified
}

func (s *session) markVerified() {
	s.mu.Lock()
	s.verified = true
	s.mu.Unlock()
}

// unverify 视图全部离开后，下次恢复重新核对订单状态
func (s *session) unverify() {
	s.mu.Lock()
	s.verified = false
	s.mu.Unlock()
}

// startWatcher 已在运行时不重复启动
func (s *session) startWatcher(run func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopWatch != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.watchGen++
	gen := s.watchGen
	done := make(chan struct{})
	s.stopWatch = cancel
	s.watchDone = done

	go func() {
		defer close(done)
		defer s.watcherExited(gen)
		run(ctx)
	}()
}

func (s *session) watcherExited(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchGen == gen && s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

// stopWatcher 通知 watcher 退出并返回其结束信号
func (s *session) stopWatcher() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := s.watchDone
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	if done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return done
}

func (s *session) watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopWatch != nil
}

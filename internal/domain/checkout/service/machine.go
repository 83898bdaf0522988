package service

import (
	"errors"
	"sync"

	"gamevault/internal/domain/checkout/model"
)

var ErrInvalidTransition = errors.New("checkout is not in a state that allows this action")

// TransitionObserver 状态变化回调，在持锁状态下同步调用，不能回调 Machine
type TransitionObserver func(from, to model.State)

// Machine 单个会话的状态机。所有迁移都是比较后设置，并发触发时只有一个生效
type Machine struct {
	mu      sync.Mutex
	state   model.State
	draft   *model.Draft
	pending *model.PendingPayment
	observe TransitionObserver
}

// NewMachine 由存储内容恢复：有待支付记录即处于等待支付
func NewMachine(draft *model.Draft, pending *model.PendingPayment, observe TransitionObserver) *Machine {
	m := &Machine{state: model.StateConfiguring, draft: draft, observe: observe}
	if pending != nil {
		m.state = model.StateAwaitingPayment
		m.pending = pending
		m.draft = nil
	}
	return m
}

func (m *Machine) State() model.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot 当前状态的拷贝
func (m *Machine) Snapshot() (model.State, *model.Draft, *model.PendingPayment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.draft.Clone(), m.pending.Clone()
}

func (m *Machine) set(to model.State) {
	from := m.state
	m.state = to
	if from != to && m.observe != nil {
		m.observe(from, to)
	}
}

// StartDraft 换上新草稿。提交中或等待支付时拒绝
func (m *Machine) StartDraft(d *model.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == model.StateSubmitting || m.state == model.StateAwaitingPayment {
		return ErrInvalidTransition
	}
	m.draft = d
	m.pending = nil
	m.set(model.StateConfiguring)
	return nil
}

// ClearDraft 丢弃配置中的草稿
func (m *Machine) ClearDraft() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == model.StateConfiguring {
		m.draft = nil
	}
}

// UpdateDraft 在草稿拷贝上执行 fn，成功才提交修改
func (m *Machine) UpdateDraft(fn func(d *model.Draft) error) (*model.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.StateConfiguring || m.draft == nil {
		return nil, ErrInvalidTransition
	}
	work := m.draft.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	m.draft = work
	return work.Clone(), nil
}

// BeginSubmit configuring → submitting
func (m *Machine) BeginSubmit() (*model.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.StateConfiguring || m.draft == nil {
		return nil, ErrInvalidTransition
	}
	m.set(model.StateSubmitting)
	return m.draft.Clone(), nil
}

// SubmitFailed 下单失败，回到 configuring 并保留草稿
func (m *Machine) SubmitFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == model.StateSubmitting {
		m.set(model.StateConfiguring)
	}
}

// OrderCreated 订单已创建，草稿作废
func (m *Machine) OrderCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == model.StateSubmitting {
		m.draft = nil
	}
}

// ArtifactFailed 二维码生成失败，订单保留在历史中，会话回到无草稿的 configuring
func (m *Machine) ArtifactFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == model.StateSubmitting {
		m.draft = nil
		m.set(model.StateConfiguring)
	}
}

// AwaitPayment submitting → awaiting_payment
func (m *Machine) AwaitPayment(p *model.PendingPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.StateSubmitting {
		return ErrInvalidTransition
	}
	m.draft = nil
	m.pending = p
	m.set(model.StateAwaitingPayment)
	return nil
}

// Discard 待支付记录已失效（订单不存在或已关闭），回到无草稿的 configuring
func (m *Machine) Discard() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.StateAwaitingPayment {
		return false
	}
	m.pending = nil
	m.set(model.StateConfiguring)
	return true
}

// Confirm 收到已确认的支付状态。重复调用返回 false
func (m *Machine) Confirm() bool {
	return m.finish(model.StateConfirmed)
}

// Expire 二维码到期
func (m *Machine) Expire() bool {
	return m.finish(model.StateExpired)
}

// Cancel 用户主动放弃
func (m *Machine) Cancel() bool {
	return m.finish(model.StateCancelled)
}

// ConfirmOrder 无待支付记录但订单已确认（按订单号恢复）
func (m *Machine) ConfirmOrder(p *model.PendingPayment) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.StateConfiguring {
		return false
	}
	m.draft = nil
	m.pending = p
	m.set(model.StateConfirmed)
	return true
}

func (m *Machine) finish(to model.State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.StateAwaitingPayment {
		return false
	}
	m.set(to)
	return true
}

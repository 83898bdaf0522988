package realtime

import (
	"context"
	"sync"
)

// OrderUpdate 订单状态变更通知
type OrderUpdate struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Subscriber 按订单订阅状态变更
type Subscriber interface {
	Subscribe(ctx context.Context, orderID string) (Subscription, error)
}

// Subscription 订阅句柄，调用方必须 Close
type Subscription interface {
	Updates() <-chan OrderUpdate
	Close() error
}

const subscriptionBuffer = 8

// Broker 进程内按订单 ID 扇出通知
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscription]struct{})}
}

// Subscribe 注册一个订单的监听者
func (b *Broker) Subscribe(ctx context.Context, orderID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &subscription{
		broker:  b,
		orderID: orderID,
		ch:      make(chan OrderUpdate, subscriptionBuffer),
	}

	b.mu.Lock()
	set, ok := b.subs[orderID]
	if !ok {
		set = make(map[*subscription]struct{})
		b.subs[orderID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()

	return s, nil
}

// Publish 投递通知；订阅者缓冲满时丢弃该条
func (b *Broker) Publish(u OrderUpdate) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for s := range b.subs[u.ID] {
		select {
		case s.ch <- u:
			delivered++
		default:
		}
	}
	return delivered
}

// Active 当前订阅数
func (b *Broker) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}

func (b *Broker) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[s.orderID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, s.orderID)
	}
	close(s.ch)
}

type subscription struct {
	broker  *Broker
	orderID string
	ch      chan OrderUpdate
	once    sync.Once
}

func (s *subscription) Updates() <-chan OrderUpdate {
	return s.ch
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.broker.remove(s)
	})
	return nil
}

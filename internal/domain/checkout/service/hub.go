package service

import (
	"sync"

	"gamevault/internal/domain/checkout/model"
)

const viewBuffer = 16

// hub 一个会话上挂着的全部视图
type hub struct {
	mu    sync.Mutex
	views map[chan model.Event]struct{}
}

func newHub() *hub {
	return &hub{views: make(map[chan model.Event]struct{})}
}

// attach 新增视图，返回其事件通道与当前视图数
func (h *hub) attach() (chan model.Event, int) {
	ch := make(chan model.Event, viewBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.views[ch] = struct{}{}
	return ch, len(h.views)
}

// detach 移除并关闭视图通道，返回剩余视图数
func (h *hub) detach(ch chan model.Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.views[ch]; ok {
		delete(h.views, ch)
		close(ch)
	}
	return len(h.views)
}

// broadcast 缓冲满时 tick 直接丢弃；其他事件挤掉最旧的一条，保证能送到
func (h *hub) broadcast(ev model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.views {
		select {
		case ch <- ev:
			continue
		default:
		}
		if ev.Type == model.EventTick {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

package debounce

import (
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer 每个 key 只保留最后一次触发，静默 delay 后执行
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	gen     uint64
	timers  map[string]entry
	stopped bool
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:  delay,
		timers: make(map[string]entry),
	}
}

// Trigger 重置 key 的计时器，fn 在最后一次触发 delay 之后执行
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if e, ok := d.timers[key]; ok {
		e.timer.Stop()
	}

	d.gen++
	gen := d.gen
	timer := time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		e, ok := d.timers[key]
		if !ok || e.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = entry{timer: timer, gen: gen}
}

// Cancel 取消 key 上待执行的回调
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.timers[key]; ok {
		e.timer.Stop()
		delete(d.timers, key)
	}
}

// Pending key 是否有待执行的回调
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.timers[key]
	return ok
}

// Stop 取消全部计时器，之后的 Trigger 不再生效
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, e := range d.timers {
		e.timer.Stop()
		delete(d.timers, key)
	}
}

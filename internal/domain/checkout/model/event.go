package model

// EventType 推送给结账视图的事件类型
type EventType string

const (
	EventSnapshot     EventType = "snapshot"
	EventDraft        EventType = "draft"
	EventTick         EventType = "tick"
	EventConfirmed    EventType = "confirmed"
	EventExpired      EventType = "expired"
	EventCancelled    EventType = "cancelled"
	EventRedirectTick EventType = "redirect_tick"
	EventRedirect     EventType = "redirect"
)

// Event 视图事件；Seconds 在 tick 中为剩余秒数，在 redirect_tick 中为跳转倒计时
type Event struct {
	Type     EventType       `json:"type"`
	State    State           `json:"state"`
	Seconds  int             `json:"seconds"`
	OrderID  string          `json:"orderId,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
	Message  string          `json:"message,omitempty"`
	Draft    *Draft          `json:"draft,omitempty"`
	Pending  *PendingPayment `json:"pending,omitempty"`
}

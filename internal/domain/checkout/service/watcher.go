package service

import (
	"context"
	"errors"
	"time"

	"gamevault/internal/domain/checkout/model"
	orderModel "gamevault/internal/domain/order/model"
	"gamevault/internal/pkg/realtime"
	"gamevault/pkg/logger"
	"gamevault/pkg/metrics"

	"go.uber.org/zap"
)

const (
	// pollEvery 实时订阅不可用时，每隔多少个 tick 读一次订单状态
	pollEvery = 5
	// resyncEvery 订阅正常时也按这个间隔直读一次，监听断线重连期间的通知会丢
	resyncEvery = 30
)

// watch 等待支付期间的倒计时与实时通知。先到达的一方推动状态机，另一方为空操作。
// 订阅与计时器在任何退出路径上都会释放
func (s *checkoutService) watch(ctx context.Context, sess *session, pending *model.PendingPayment) {
	metrics.Default().WatcherStarted()
	defer metrics.Default().WatcherStopped()

	var updates <-chan realtime.OrderUpdate
	sub, err := s.deps.Realtime.Subscribe(ctx, pending.OrderID)
	if err != nil {
		logger.Log.Warn("Realtime subscribe failed, polling order status",
			zap.String("order_id", pending.OrderID),
			zap.Error(err),
		)
	} else {
		defer sub.Close()
		updates = sub.Updates()
	}

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	// 订阅建立之前的通知收不到，先直读一次
	if s.poll(ctx, sess, pending) {
		s.redirectCountdown(ctx, sess, pending, ticker)
		return
	}
	if s.tick(ctx, sess, pending) {
		return
	}

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return

		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if !orderModel.IsPaymentAcknowledged(u.Status) {
				continue
			}
			if sess.machine.Confirm() {
				s.finish(ctx, sess, model.StateConfirmed, pending)
				s.redirectCountdown(ctx, sess, pending, ticker)
			}
			return

		case <-ticker.C:
			if s.tick(ctx, sess, pending) {
				return
			}
			ticks++
			due := ticks%resyncEvery == 0 || (updates == nil && ticks%pollEvery == 0)
			if due && s.poll(ctx, sess, pending) {
				s.redirectCountdown(ctx, sess, pending, ticker)
				return
			}
		}
	}
}

// tick 推送剩余时间，到期时迁移到 expired。返回 true 表示 watcher 应退出
func (s *checkoutService) tick(ctx context.Context, sess *session, pending *model.PendingPayment) bool {
	if sess.machine.State() != model.StateAwaitingPayment {
		return true
	}

	remaining := pending.Remaining(s.now())
	if remaining <= 0 {
		if sess.machine.Expire() {
			s.finish(ctx, sess, model.StateExpired, pending)
		}
		return true
	}

	sess.hub.broadcast(model.Event{
		Type:    model.EventTick,
		State:   model.StateAwaitingPayment,
		Seconds: remainingSeconds(remaining),
		OrderID: pending.OrderID,
	})
	return false
}

// poll 直接读取订单状态，已确认时返回 true
func (s *checkoutService) poll(ctx context.Context, sess *session, pending *model.PendingPayment) bool {
	order, err := s.deps.Orders.Get(ctx, pending.UserID, pending.OrderID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Log.Warn("Poll order status failed", zap.String("order_id", pending.OrderID), zap.Error(err))
		}
		return false
	}
	if orderModel.IsPaymentAcknowledged(order.Status) && sess.machine.Confirm() {
		s.finish(ctx, sess, model.StateConfirmed, pending)
		return true
	}
	return false
}

// redirectCountdown 确认后倒数若干秒再通知视图跳转到订单详情
func (s *checkoutService) redirectCountdown(ctx context.Context, sess *session, pending *model.PendingPayment, ticker *time.Ticker) {
	target := OrderURL(pending.OrderID)
	for left := s.opts.RedirectSeconds - 1; left >= 0; left-- {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if left == 0 {
			break
		}
		sess.hub.broadcast(model.Event{
			Type:     model.EventRedirectTick,
			State:    model.StateConfirmed,
			Seconds:  left,
			OrderID:  pending.OrderID,
			Redirect: target,
		})
	}
	sess.hub.broadcast(model.Event{
		Type:     model.EventRedirect,
		State:    model.StateConfirmed,
		OrderID:  pending.OrderID,
		Redirect: target,
	})
}

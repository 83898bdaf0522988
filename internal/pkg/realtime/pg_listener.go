package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gamevault/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var errMissingID = errors.New("notification has no order id")

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// PGListener 通过 LISTEN/NOTIFY 接收订单状态变更，并经 Broker 分发
type PGListener struct {
	*Broker
	dsn     string
	channel string
}

func NewPGListener(dsn, channel string) *PGListener {
	return &PGListener{
		Broker:  NewBroker(),
		dsn:     dsn,
		channel: channel,
	}
}

// Run 保持一个监听连接，断线后指数退避重连，直到 ctx 结束
func (l *PGListener) Run(ctx context.Context) {
	backoff := minBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Log.Warn("Realtime listener disconnected",
			zap.String("channel", l.channel),
			zap.Duration("retry_in", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	logger.Log.Info("Realtime listener connected", zap.String("channel", l.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(n.Payload)
	}
}

func (l *PGListener) dispatch(payload string) {
	u, err := ParseUpdate(payload)
	if err != nil {
		logger.Log.Warn("Ignoring malformed order notification", zap.String("payload", payload), zap.Error(err))
		return
	}
	l.Publish(u)
}

// ParseUpdate 解析触发器发出的 JSON 负载
func ParseUpdate(payload string) (OrderUpdate, error) {
	var u OrderUpdate
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return u, err
	}
	if u.ID == "" {
		return u, errMissingID
	}
	return u, nil
}

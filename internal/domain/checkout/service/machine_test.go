package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gamevault/internal/domain/checkout/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awaitingMachine(t *testing.T, observe TransitionObserver) *Machine {
	t.Helper()
	m := NewMachine(model.NewDraft("genshin-impact", "Genshin Impact", time.Now(), time.Hour), nil, observe)
	_, err := m.BeginSubmit()
	require.NoError(t, err)
	m.OrderCreated()
	require.NoError(t, m.AwaitPayment(&model.PendingPayment{OrderID: "o-1", ExpiresAt: time.Now().Add(time.Minute)}))
	return m
}

func TestMachineRestore(t *testing.T) {
	t.Run("Pending means awaiting payment", func(t *testing.T) {
		m := NewMachine(nil, &model.PendingPayment{OrderID: "o-1"}, nil)
		assert.Equal(t, model.StateAwaitingPayment, m.State())
	})

	t.Run("Draft only means configuring", func(t *testing.T) {
		m := NewMachine(model.NewDraft("g", "G", time.Now(), time.Hour), nil, nil)
		state, d, p := m.Snapshot()
		assert.Equal(t, model.StateConfiguring, state)
		assert.NotNil(t, d)
		assert.Nil(t, p)
	})
}

func TestMachineConfirmIdempotent(t *testing.T) {
	var transitions []string
	m := awaitingMachine(t, func(from, to model.State) {
		transitions = append(transitions, string(from)+">"+string(to))
	})

	assert.True(t, m.Confirm())
	assert.False(t, m.Confirm())
	assert.False(t, m.Expire())
	assert.False(t, m.Cancel())
	assert.Equal(t, model.StateConfirmed, m.State())

	assert.Equal(t, []string{
		"configuring>submitting",
		"submitting>awaiting_payment",
		"awaiting_payment>confirmed",
	}, transitions)

	_, _, p := m.Snapshot()
	require.NotNil(t, p)
	assert.Equal(t, "o-1", p.OrderID)
}

func TestMachineConfirmExpireRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := awaitingMachine(t, nil)

		var wins int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, fn := range []func() bool{m.Confirm, m.Expire, m.Confirm, m.Expire} {
			wg.Add(1)
			go func(fn func() bool) {
				defer wg.Done()
				<-start
				if fn() {
					atomic.AddInt32(&wins, 1)
				}
			}(fn)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins)
		assert.True(t, m.State().Terminal())
	}
}

func TestMachineSubmitPaths(t *testing.T) {
	t.Run("Failure keeps draft", func(t *testing.T) {
		m := NewMachine(model.NewDraft("g", "G", time.Now(), time.Hour), nil, nil)
		_, err := m.BeginSubmit()
		require.NoError(t, err)

		_, err = m.BeginSubmit()
		assert.ErrorIs(t, err, ErrInvalidTransition)

		m.SubmitFailed()
		state, d, _ := m.Snapshot()
		assert.Equal(t, model.StateConfiguring, state)
		assert.NotNil(t, d)
	})

	t.Run("Artifact failure leaves no draft", func(t *testing.T) {
		m := NewMachine(model.NewDraft("g", "G", time.Now(), time.Hour), nil, nil)
		_, err := m.BeginSubmit()
		require.NoError(t, err)
		m.OrderCreated()
		m.ArtifactFailed()

		state, d, p := m.Snapshot()
		assert.Equal(t, model.StateConfiguring, state)
		assert.Nil(t, d)
		assert.Nil(t, p)
	})

	t.Run("AwaitPayment requires submitting", func(t *testing.T) {
		m := NewMachine(model.NewDraft("g", "G", time.Now(), time.Hour), nil, nil)
		assert.ErrorIs(t, m.AwaitPayment(&model.PendingPayment{}), ErrInvalidTransition)
	})
}

func TestMachineDraftGuards(t *testing.T) {
	t.Run("No new draft while awaiting payment", func(t *testing.T) {
		m := awaitingMachine(t, nil)
		assert.ErrorIs(t, m.StartDraft(model.NewDraft("g", "G", time.Now(), time.Hour)), ErrInvalidTransition)
	})

	t.Run("New draft after terminal state", func(t *testing.T) {
		m := awaitingMachine(t, nil)
		require.True(t, m.Expire())
		require.NoError(t, m.StartDraft(model.NewDraft("g", "G", time.Now(), time.Hour)))

		state, d, p := m.Snapshot()
		assert.Equal(t, model.StateConfiguring, state)
		assert.NotNil(t, d)
		assert.Nil(t, p)
	})

	t.Run("Failed update leaves draft untouched", func(t *testing.T) {
		m := NewMachine(model.NewDraft("g", "G", time.Now(), time.Hour), nil, nil)
		_, err := m.UpdateDraft(func(d *model.Draft) error {
			d.Quantity = 9
			return errors.New("nope")
		})
		assert.Error(t, err)

		_, d, _ := m.Snapshot()
		assert.Equal(t, 1, d.Quantity)
	})

	t.Run("Snapshot is a copy", func(t *testing.T) {
		m := NewMachine(model.NewDraft("g", "G", time.Now(), time.Hour), nil, nil)
		_, d, _ := m.Snapshot()
		d.Quantity = 5

		_, again, _ := m.Snapshot()
		assert.Equal(t, 1, again.Quantity)
	})
}

func TestMachineDiscard(t *testing.T) {
	m := awaitingMachine(t, nil)
	assert.True(t, m.Discard())
	assert.False(t, m.Discard())

	state, d, p := m.Snapshot()
	assert.Equal(t, model.StateConfiguring, state)
	assert.Nil(t, d)
	assert.Nil(t, p)
}

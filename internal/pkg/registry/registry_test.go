package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeModule struct {
	name     string
	priority int
	err      error
	order    *[]string
}

func (m *fakeModule) Name() string  { return m.name }
func (m *fakeModule) Priority() int { return m.priority }
func (m *fakeModule) Init(ctx *ModuleContext) error {
	*m.order = append(*m.order, m.name)
	return m.err
}

func TestInitModules(t *testing.T) {
	saved := moduleRegistry
	defer func() { moduleRegistry = saved }()

	t.Run("Priority order", func(t *testing.T) {
		moduleRegistry = make(map[string]Module)
		var order []string
		Register(&fakeModule{name: "checkout", priority: 10, order: &order})
		Register(&fakeModule{name: "catalog", priority: 1, order: &order})
		Register(&fakeModule{name: "order", priority: 5, order: &order})
		Register(&fakeModule{name: "coupon", priority: 5, order: &order})

		assert.NoError(t, InitModules(&ModuleContext{}))
		assert.Equal(t, []string{"catalog", "coupon", "order", "checkout"}, order)
	})

	t.Run("Stops on error", func(t *testing.T) {
		moduleRegistry = make(map[string]Module)
		var order []string
		Register(&fakeModule{name: "a", priority: 1, err: errors.New("boom"), order: &order})
		Register(&fakeModule{name: "b", priority: 2, order: &order})

		assert.EqualError(t, InitModules(&ModuleContext{}), "boom")
		assert.Equal(t, []string{"a"}, order)
	})
}

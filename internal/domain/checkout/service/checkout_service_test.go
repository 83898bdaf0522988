package service

import (
	"context"
	"errors"
	"testing"
	"time"

	catalogModel "gamevault/internal/domain/catalog/model"
	"gamevault/internal/domain/checkout/model"
	"gamevault/internal/domain/checkout/store"
	couponModel "gamevault/internal/domain/coupon/model"
	couponService "gamevault/internal/domain/coupon/service"
	identityService "gamevault/internal/domain/identity/service"
	orderModel "gamevault/internal/domain/order/model"
	orderService "gamevault/internal/domain/order/service"
	"gamevault/internal/domain/payment/strategy"
	"gamevault/internal/pkg/realtime"
	baseModel "gamevault/pkg/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCatalog 模拟目录查询
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetGame(ctx context.Context, gameKey string) (*catalogModel.Game, error) {
	args := m.Called(ctx, gameKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogModel.Game), args.Error(1)
}

func (m *MockCatalog) GetProduct(ctx context.Context, id int64) (*catalogModel.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogModel.Product), args.Error(1)
}

func (m *MockCatalog) ListPaymentMethods(ctx context.Context) ([]catalogModel.PaymentMethod, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalogModel.PaymentMethod), args.Error(1)
}

func (m *MockCatalog) GetPaymentMethod(ctx context.Context, id int64) (*catalogModel.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogModel.PaymentMethod), args.Error(1)
}

func (m *MockCatalog) ListServers(ctx context.Context, gameKey string) ([]catalogModel.Server, error) {
	args := m.Called(ctx, gameKey)
	return args.Get(0).([]catalogModel.Server), args.Error(1)
}

// MockValidator 模拟身份校验
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) NeedsLookup(game *catalogModel.Game, uid, server string) bool {
	return m.Called(game, uid, server).Bool(0)
}

func (m *MockValidator) Validate(ctx context.Context, game *catalogModel.Game, uid, server string) (*identityService.Result, error) {
	args := m.Called(ctx, game, uid, server)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityService.Result), args.Error(1)
}

// MockCoupons 模拟券码校验
type MockCoupons struct {
	mock.Mock
}

func (m *MockCoupons) Resolve(ctx context.Context, userID, code string, subtotal decimal.Decimal) (*couponModel.UserCoupon, error) {
	args := m.Called(ctx, userID, code, subtotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*couponModel.UserCoupon), args.Error(1)
}

// MockOrders 模拟订单服务
type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Create(ctx context.Context, p orderModel.CreateOrderParams) (*orderModel.CreatedOrder, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderModel.CreatedOrder), args.Error(1)
}

func (m *MockOrders) ReadableID(ctx context.Context, id string) string {
	return m.Called(ctx, id).String(0)
}

func (m *MockOrders) Get(ctx context.Context, userID, id string) (*orderModel.Order, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderModel.Order), args.Error(1)
}

func (m *MockOrders) Repurchase(ctx context.Context, userID, id string) (*orderModel.RepurchaseSnapshot, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderModel.RepurchaseSnapshot), args.Error(1)
}

// MockStrategy 模拟出码
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Issue(ctx context.Context, orderID string, amount decimal.Decimal) (*strategy.Artifact, error) {
	args := m.Called(ctx, orderID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strategy.Artifact), args.Error(1)
}

var (
	lookupGame = &catalogModel.Game{ID: 1, GameKey: "mobile-legends", Name: "Mobile Legends", HasServerID: true, APIValidationEnabled: true}
	plainGame  = &catalogModel.Game{ID: 2, GameKey: "honkai-star-rail", Name: "Honkai: Star Rail"}
	diamonds   = &catalogModel.Product{ID: 11, GameKey: "mobile-legends", Name: "86 Diamonds", Price: decimal.RequireFromString("10.00"), IsActive: true}
	shards     = &catalogModel.Product{ID: 21, GameKey: "honkai-star-rail", Name: "60 Shards", Price: decimal.RequireFromString("10.00"), IsActive: true}
	paynow     = catalogModel.PaymentMethod{ID: 1, Name: "PayNow", IsActive: true}
	card       = catalogModel.PaymentMethod{ID: 2, Name: "Card", FeeIsActive: true, FeeRate: decimal.NewFromInt(2), IsActive: true}
	caller     = Caller{SessionID: "sess-0001", Owner: "dev-0001", UserID: "u-1"}
)

type fixture struct {
	svc      *checkoutService
	store    *store.RedisStore
	mr       *miniredis.Miniredis
	catalog  *MockCatalog
	identity *MockValidator
	coupons  *MockCoupons
	orders   *MockOrders
	payments *MockStrategy
	broker   *realtime.Broker
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		store:    store.NewRedisStore(client, time.Hour),
		mr:       mr,
		catalog:  new(MockCatalog),
		identity: new(MockValidator),
		coupons:  new(MockCoupons),
		orders:   new(MockOrders),
		payments: new(MockStrategy),
		broker:   realtime.NewBroker(),
	}

	f.catalog.On("GetGame", mock.Anything, lookupGame.GameKey).Return(lookupGame, nil).Maybe()
	f.catalog.On("GetGame", mock.Anything, plainGame.GameKey).Return(plainGame, nil).Maybe()
	f.catalog.On("ListPaymentMethods", mock.Anything).Return([]catalogModel.PaymentMethod{paynow, card}, nil).Maybe()
	f.catalog.On("GetPaymentMethod", mock.Anything, int64(1)).Return(&paynow, nil).Maybe()
	f.catalog.On("GetPaymentMethod", mock.Anything, int64(2)).Return(&card, nil).Maybe()

	f.svc = f.newService()
	t.Cleanup(f.svc.Stop)
	return f
}

func (f *fixture) newService() *checkoutService {
	return newCheckoutService(Deps{
		Sessions: f.store,
		Prefs:    f.store,
		Catalog:  f.catalog,
		Identity: f.identity,
		Coupons:  f.coupons,
		Orders:   f.orders,
		Payments: strategy.NewRegistry(f.payments),
		Realtime: f.broker,
	}, Options{
		DraftTTL:           30 * time.Minute,
		ValidationDebounce: 20 * time.Millisecond,
		TickInterval:       10 * time.Millisecond,
		RedirectSeconds:    2,
		IdleEviction:       time.Minute,
	})
}

// readyPlainDraft 无需校验的游戏，填好 UID 与商品
func (f *fixture) readyPlainDraft(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	f.identity.On("NeedsLookup", mock.Anything, "800123456", "").Return(false).Maybe()
	f.identity.On("Validate", mock.Anything, mock.Anything, "800123456", "").
		Return(&identityService.Result{DisplayName: "User-3456", Placeholder: true}, nil).Maybe()
	f.catalog.On("GetProduct", mock.Anything, shards.ID).Return(shards, nil).Maybe()

	_, err := f.svc.StartDraft(ctx, caller, plainGame.GameKey)
	require.NoError(t, err)
	_, err = f.svc.UpdateIdentity(ctx, caller, "800123456", "")
	require.NoError(t, err)
	v, err := f.svc.SelectProduct(ctx, caller, shards.ID)
	require.NoError(t, err)
	require.True(t, v.Ready, "problems: %v", v.Problems)
}

// seedPending 直接写入一条待支付记录
func (f *fixture) seedPending(t *testing.T, sid string, expiresAt time.Time) *model.PendingPayment {
	t.Helper()
	p := &model.PendingPayment{
		OrderID:       "o-1",
		ReadableID:    "GV-1001",
		UserID:        "u-1",
		GameKey:       plainGame.GameKey,
		PaymentMethod: "PayNow",
		TotalAmount:   decimal.RequireFromString("10.00"),
		QRImageData:   "data:image/png;base64,AAAA",
		ReferenceID:   "REF-1",
		ExpiresAt:     expiresAt,
	}
	require.NoError(t, f.store.SavePending(context.Background(), sid, p))
	return p
}

func (f *fixture) orderStatus(status string) {
	f.orders.On("Get", mock.Anything, "u-1", "o-1").
		Return(&orderModel.Order{BaseModel: baseModel.BaseModel{ID: "o-1"}, UserID: "u-1", Status: status}, nil)
}

func waitFor(t *testing.T, events <-chan model.Event, typ model.EventType) model.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed before %s", typ)
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestStartDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("Hydrates saved preference", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.SavePreference(ctx, "dev-0001", plainGame.GameKey, model.Preference{UID: "800123456"}))
		f.identity.On("NeedsLookup", mock.Anything, "800123456", "").Return(false)
		f.identity.On("Validate", mock.Anything, mock.Anything, "800123456", "").
			Return(&identityService.Result{DisplayName: "User-3456", Placeholder: true}, nil)

		v, err := f.svc.StartDraft(ctx, caller, plainGame.GameKey)
		require.NoError(t, err)
		assert.Equal(t, model.StateConfiguring, v.State)
		assert.Equal(t, "800123456", v.Draft.PlayerUID)
		assert.Equal(t, "User-3456", v.Draft.PlayerDisplayName)
		assert.Equal(t, paynow.ID, v.Draft.PaymentMethodID)
		assert.Equal(t, []string{"Product selection is required"}, v.Problems)
		assert.Equal(t, 50, v.Progress)
		assert.True(t, f.mr.Exists("checkout:session:sess-0001:draft"))
	})

	t.Run("Blocked by pending payment", func(t *testing.T) {
		f := newFixture(t)
		f.seedPending(t, caller.SessionID, time.Now().Add(5*time.Minute))
		f.orderStatus(orderModel.OrderStatusPending)

		v, err := f.svc.StartDraft(ctx, caller, plainGame.GameKey)
		assert.ErrorIs(t, err, ErrPendingPaymentExists)
		require.NotNil(t, v.Pending)
		assert.True(t, v.Pending.TotalAmount.Equal(decimal.RequireFromString("10.00")))
	})

	t.Run("Expired draft is cleared", func(t *testing.T) {
		f := newFixture(t)
		f.readyPlainDraft(t)

		f.svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
		_, err := f.svc.Draft(ctx, caller)
		assert.ErrorIs(t, err, ErrExpiredSession)

		var redirect *RedirectError
		require.True(t, errors.As(err, &redirect))
		assert.Equal(t, RedirectHome, redirect.Redirect)
		assert.False(t, f.mr.Exists("checkout:session:sess-0001:draft"))
	})
}

func TestIdentityDebounce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.identity.On("NeedsLookup", mock.Anything, mock.Anything, mock.Anything).Return(true)
	f.identity.On("Validate", mock.Anything, mock.Anything, "12345679", "2001").
		Return(&identityService.Result{DisplayName: "Layla", RoleID: "r-9"}, nil).Once()

	_, err := f.svc.StartDraft(ctx, caller, lookupGame.GameKey)
	require.NoError(t, err)

	_, err = f.svc.UpdateIdentity(ctx, caller, "12345678", "2001")
	require.NoError(t, err)
	v, err := f.svc.UpdateIdentity(ctx, caller, "12345679", "2001")
	require.NoError(t, err)
	assert.Equal(t, model.IdentityPending, v.Draft.IdentityStatus)

	require.Eventually(t, func() bool {
		v, err := f.svc.Draft(ctx, caller)
		return err == nil && v.Draft.IdentityStatus == model.IdentityValid
	}, 2*time.Second, 10*time.Millisecond)

	v, err = f.svc.Draft(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "Layla", v.Draft.PlayerDisplayName)
	assert.Equal(t, "r-9", v.Draft.SelectedRoleID)
	f.identity.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, "12345678", "2001")

	pref, err := f.store.LoadPreference(ctx, "dev-0001", lookupGame.GameKey)
	require.NoError(t, err)
	assert.Equal(t, model.Preference{UID: "12345679", Server: "2001"}, pref)
}

func TestStaleIdentityResultDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.identity.On("NeedsLookup", mock.Anything, mock.Anything, mock.Anything).Return(true)
	f.identity.On("Validate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&identityService.Result{Roles: []identityService.Role{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}}, nil).Maybe()

	_, err := f.svc.StartDraft(ctx, caller, lookupGame.GameKey)
	require.NoError(t, err)
	_, err = f.svc.UpdateIdentity(ctx, caller, "12345678", "2001")
	require.NoError(t, err)

	sess, err := f.svc.session(ctx, caller.SessionID)
	require.NoError(t, err)
	_, d, _ := sess.machine.Snapshot()
	oldGen := d.IdentityGen

	_, err = f.svc.UpdateIdentity(ctx, caller, "87654321", "2001")
	require.NoError(t, err)

	assert.False(t, f.svc.applyIdentity(ctx, sess, oldGen, &identityService.Result{DisplayName: "Old"}, nil))
	_, d, _ = sess.machine.Snapshot()
	assert.NotEqual(t, "Old", d.PlayerDisplayName)
}

func TestRoleSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.identity.On("NeedsLookup", mock.Anything, mock.Anything, mock.Anything).Return(true)
	f.identity.On("Validate", mock.Anything, mock.Anything, "12345678", "2001").
		Return(&identityService.Result{Roles: []identityService.Role{{ID: "1", Name: "Alucard"}, {ID: "2", Name: "Miya"}}}, nil)

	_, err := f.svc.StartDraft(ctx, caller, lookupGame.GameKey)
	require.NoError(t, err)
	_, err = f.svc.UpdateIdentity(ctx, caller, "12345678", "2001")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := f.svc.Draft(ctx, caller)
		return err == nil && v.Draft.IdentityStatus == model.IdentitySelectRole
	}, 2*time.Second, 10*time.Millisecond)

	v, err := f.svc.Draft(ctx, caller)
	require.NoError(t, err)
	assert.Contains(t, v.Problems, "Please select a character.")

	_, err = f.svc.SelectRole(ctx, caller, "9")
	assert.ErrorIs(t, err, ErrRoleNotFound)

	v, err = f.svc.SelectRole(ctx, caller, "2")
	require.NoError(t, err)
	assert.Equal(t, "Miya", v.Draft.PlayerDisplayName)
	assert.NotContains(t, v.Problems, "Please select a character.")
}

func TestQuoteWithCouponAndFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.readyPlainDraft(t)

	uc := &couponModel.UserCoupon{
		BaseModel: baseModel.BaseModel{ID: "uc-1"},
		UserID:    "u-1",
		Status:    couponModel.UserCouponActive,
		Coupon: &couponModel.Coupon{
			ID: 5, Code: "SAVE10", DiscountType: "percentage",
			DiscountValue: decimal.NewFromInt(10), MinOrderValue: decimal.NewFromInt(20), IsActive: true,
		},
	}
	f.coupons.On("Resolve", mock.Anything, "u-1", "save10", mock.Anything).Return(uc, nil)

	_, err := f.svc.SelectPaymentMethod(ctx, caller, card.ID)
	require.NoError(t, err)
	_, err = f.svc.SetQuantity(ctx, caller, 3)
	require.NoError(t, err)

	v, err := f.svc.ApplyCoupon(ctx, caller, "save10")
	require.NoError(t, err)
	require.NotNil(t, v.Quote)
	assert.Equal(t, "30.00", v.Quote.Subtotal.StringFixed(2))
	assert.Equal(t, "3.00", v.Quote.Discount.StringFixed(2))
	assert.Equal(t, "0.54", v.Quote.Fee.StringFixed(2))
	assert.Equal(t, "27.54", v.Quote.Total.StringFixed(2))
	assert.Equal(t, int64(27), v.Quote.LoyaltyPoints)
	require.Len(t, v.Methods, 2)
	assert.Equal(t, "27.00", v.Methods[0].Quote.Total.StringFixed(2))

	t.Run("Quantity below minimum spend drops coupon", func(t *testing.T) {
		v, err := f.svc.SetQuantity(ctx, caller, 1)
		require.NoError(t, err)
		assert.Nil(t, v.Draft.Coupon)
		assert.Contains(t, v.Message, "removed")
		assert.Equal(t, "10.20", v.Quote.Total.StringFixed(2))
	})

	t.Run("Invalid quantity", func(t *testing.T) {
		_, err := f.svc.SetQuantity(ctx, caller, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("Rejected coupon leaves draft unchanged", func(t *testing.T) {
		f.coupons.On("Resolve", mock.Anything, "u-1", "BIG", mock.Anything).
			Return(nil, &couponService.MinSpendError{MinOrderValue: decimal.NewFromInt(100)})

		_, err := f.svc.ApplyCoupon(ctx, caller, "BIG")
		assert.ErrorIs(t, err, couponService.ErrMinSpend)

		v, err := f.svc.Draft(ctx, caller)
		require.NoError(t, err)
		assert.Nil(t, v.Draft.Coupon)
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	artifact := &strategy.Artifact{
		QRImageData: "data:image/png;base64,AAAA",
		ReferenceID: "REF-1",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}

	t.Run("Requires login and remitter", func(t *testing.T) {
		f := newFixture(t)
		f.readyPlainDraft(t)

		_, err := f.svc.Submit(ctx, Caller{SessionID: caller.SessionID}, "Tan Ah Kow")
		assert.ErrorIs(t, err, ErrLoginRequired)
		_, err = f.svc.Submit(ctx, caller, "  ")
		assert.ErrorIs(t, err, ErrRemitterRequired)
	})

	t.Run("Incomplete draft", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.StartDraft(ctx, caller, plainGame.GameKey)
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, caller, "Tan Ah Kow")
		assert.ErrorIs(t, err, ErrDraftIncomplete)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		f.readyPlainDraft(t)

		f.orders.On("Create", mock.Anything, mock.MatchedBy(func(p orderModel.CreateOrderParams) bool {
			return p.UserID == "u-1" &&
				p.PaymentMethod == "PayNow" &&
				p.GameUID == "800123456" &&
				p.ServerRegion == nil &&
				p.CouponCode == nil &&
				p.RemitterName == "Tan Ah Kow" &&
				len(p.Items) == 1 && p.Items[0].ProductID == shards.ID && p.Items[0].Quantity == 1
		})).Return(&orderModel.CreatedOrder{ID: "o-1", Total: decimal.RequireFromString("10.00")}, nil).Once()
		f.orders.On("ReadableID", mock.Anything, "o-1").Return("GV-1001")
		f.payments.On("Issue", mock.Anything, "o-1", mock.Anything).Return(artifact, nil)

		v, err := f.svc.Submit(ctx, caller, " Tan Ah Kow ")
		require.NoError(t, err)
		assert.Equal(t, model.StateAwaitingPayment, v.State)
		assert.Equal(t, "GV-1001", v.DisplayID)
		assert.Equal(t, artifact.QRImageData, v.Pending.QRImageData)
		assert.Greater(t, v.RemainingSeconds, 500)

		assert.False(t, f.mr.Exists("checkout:session:sess-0001:draft"))
		assert.True(t, f.mr.Exists("checkout:session:sess-0001:pending"))

		_, err = f.svc.Submit(ctx, caller, "Tan Ah Kow")
		assert.ErrorIs(t, err, ErrPendingPaymentExists)
		f.orders.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("Creation failure keeps draft", func(t *testing.T) {
		f := newFixture(t)
		f.readyPlainDraft(t)
		f.orders.On("Create", mock.Anything, mock.Anything).
			Return(nil, &orderService.CreationError{Message: "Product out of stock"})

		_, err := f.svc.Submit(ctx, caller, "Tan Ah Kow")
		assert.ErrorIs(t, err, orderService.ErrOrderCreationFailed)
		assert.Equal(t, "Order creation failed: Product out of stock", err.Error())

		v, err := f.svc.Draft(ctx, caller)
		require.NoError(t, err)
		assert.Equal(t, model.StateConfiguring, v.State)
		assert.True(t, v.Ready)
		f.payments.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("QR failure points at order history", func(t *testing.T) {
		f := newFixture(t)
		f.readyPlainDraft(t)
		f.orders.On("Create", mock.Anything, mock.Anything).
			Return(&orderModel.CreatedOrder{ID: "o-1", Total: decimal.RequireFromString("10.00")}, nil).Once()
		f.orders.On("ReadableID", mock.Anything, "o-1").Return("GV-1001")
		f.payments.On("Issue", mock.Anything, "o-1", mock.Anything).Return(nil, errors.New("gateway down"))

		_, err := f.svc.Submit(ctx, caller, "Tan Ah Kow")
		assert.ErrorIs(t, err, ErrPaymentArtifactFailed)

		var artErr *ArtifactError
		require.True(t, errors.As(err, &artErr))
		assert.Equal(t, "o-1", artErr.OrderID)
		assert.Equal(t, "GV-1001", artErr.ReadableID)

		_, err = f.svc.Draft(ctx, caller)
		assert.ErrorIs(t, err, ErrNoDraft)
		assert.False(t, f.mr.Exists("checkout:session:sess-0001:pending"))
		f.orders.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("Price change stops submission", func(t *testing.T) {
		f := newFixture(t)
		f.readyPlainDraft(t)

		f.catalog.ExpectedCalls = removeCalls(f.catalog.ExpectedCalls, "GetProduct")
		raised := *shards
		raised.Price = decimal.RequireFromString("12.00")
		f.catalog.On("GetProduct", mock.Anything, shards.ID).Return(&raised, nil)

		_, err := f.svc.Submit(ctx, caller, "Tan Ah Kow")
		assert.ErrorIs(t, err, ErrPriceChanged)

		v, err := f.svc.Draft(ctx, caller)
		require.NoError(t, err)
		assert.Equal(t, "12.00", v.Draft.Product.Price.StringFixed(2))
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestSubmitRechecksDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.readyPlainDraft(t)

	// 读取支付方式期间，防抖的身份结果清空了 UID
	f.catalog.ExpectedCalls = removeCalls(f.catalog.ExpectedCalls, "GetPaymentMethod")
	f.catalog.On("GetPaymentMethod", mock.Anything, paynow.ID).Run(func(mock.Arguments) {
		sess, err := f.svc.session(ctx, caller.SessionID)
		require.NoError(t, err)
		_, err = sess.machine.UpdateDraft(func(d *model.Draft) error {
			d.PlayerUID = ""
			return nil
		})
		require.NoError(t, err)
	}).Return(&paynow, nil)

	_, err := f.svc.Submit(ctx, caller, "Tan Ah Kow")
	assert.ErrorIs(t, err, ErrDraftIncomplete)
	assert.Contains(t, err.Error(), "UID is required")
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	sess, err := f.svc.session(ctx, caller.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StateConfiguring, sess.machine.State())
}

func TestPendingOwner(t *testing.T) {
	ctx := context.Background()
	stranger := Caller{SessionID: caller.SessionID, Owner: "dev-0001", UserID: "u-2"}

	t.Run("Other account cannot see or cancel", func(t *testing.T) {
		f := newFixture(t)
		f.seedPending(t, caller.SessionID, time.Now().Add(5*time.Minute))
		f.orderStatus(orderModel.OrderStatusPending)

		_, err := f.svc.Payment(ctx, stranger, "")
		assert.ErrorIs(t, err, ErrNoPendingPayment)
		_, _, err = f.svc.Watch(ctx, stranger)
		assert.ErrorIs(t, err, ErrNoPendingPayment)
		_, err = f.svc.Cancel(ctx, stranger)
		assert.ErrorIs(t, err, ErrNoPendingPayment)
		assert.True(t, f.mr.Exists("checkout:session:sess-0001:pending"))

		v, err := f.svc.Payment(ctx, caller, "")
		require.NoError(t, err)
		assert.Equal(t, model.StateAwaitingPayment, v.State)
	})

	t.Run("Anonymous session holder keeps access", func(t *testing.T) {
		f := newFixture(t)
		f.seedPending(t, caller.SessionID, time.Now().Add(5*time.Minute))
		f.orderStatus(orderModel.OrderStatusPending)

		v, err := f.svc.Cancel(ctx, Caller{SessionID: caller.SessionID})
		require.NoError(t, err)
		assert.Equal(t, model.StateCancelled, v.State)
	})
}

func removeCalls(calls []*mock.Call, method string) []*mock.Call {
	out := calls[:0]
	for _, c := range calls {
		if c.Method != method {
			out = append(out, c)
		}
	}
	return out
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("Round trip keeps order and expiry", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedPending(t, caller.SessionID, time.Now().Add(5*time.Minute))
		f.orderStatus(orderModel.OrderStatusPending)

		v, err := f.newService().Payment(ctx, caller, "")
		require.NoError(t, err)
		assert.Equal(t, model.StateAwaitingPayment, v.State)
		assert.Equal(t, p.OrderID, v.Pending.OrderID)
		assert.Equal(t, p.QRImageData, v.Pending.QRImageData)
		assert.True(t, p.ExpiresAt.Equal(v.Pending.ExpiresAt))
	})

	t.Run("Past expiry is expired without countdown", func(t *testing.T) {
		f := newFixture(t)
		f.seedPending(t, caller.SessionID, time.Now().Add(-time.Second))

		v, err := f.svc.Payment(ctx, caller, "")
		require.NoError(t, err)
		assert.Equal(t, model.StateExpired, v.State)
		assert.Equal(t, 0, v.RemainingSeconds)
		assert.Empty(t, v.Pending.QRImageData)
		assert.False(t, f.mr.Exists("checkout:session:sess-0001:pending"))
		assert.Equal(t, 0, f.broker.Active())
		f.orders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Acknowledged order is confirmed", func(t *testing.T) {
		f := newFixture(t)
		f.seedPending(t, caller.SessionID, time.Now().Add(5*time.Minute))
		f.orderStatus(orderModel.OrderStatusVerifying)

		v, err := f.svc.Payment(ctx, caller, "")
		require.NoError(t, err)
		assert.Equal(t, model.StateConfirmed, v.State)
		assert.Equal(t, "/orders/o-1", v.Redirect)
		assert.Equal(t, 2, v.RedirectSeconds)
		assert.False(t, f.mr.Exists("checkout:session:sess-0001:pending"))
	})

	t.Run("Missing order is a corrupted session", func(t *testing.T) {
		f := newFixture(t)
		f.seedPending(t, caller.SessionID, time.Now().Add(5*time.Minute))
		f.orders.On("Get", mock.Anything, "u-1", "o-1").Return(nil, orderService.ErrOrderNotFound)

		_, err := f.svc.Payment(ctx, caller, "")
		assert.ErrorIs(t, err, ErrExpiredSession)

		sess, err := f.svc.session(ctx, caller.SessionID)
		require.NoError(t, err)
		assert.Equal(t, model.StateConfiguring, sess.machine.State())
		assert.False(t, f.mr.Exists("checkout:session:sess-0001:pending"))
	})

	t.Run("Order hint without session data", func(t *testing.T) {
		f := newFixture(t)
		f.orderStatus(orderModel.OrderStatusPending)

		_, err := f.svc.Payment(ctx, caller, "o-1")
		assert.ErrorIs(t, err, ErrSessionDataLost)

		var redirect *RedirectError
		require.True(t, errors.As(err, &redirect))
		assert.Equal(t, RedirectHistory, redirect.Redirect)
	})

	t.Run("Order hint already paid", func(t *testing.T) {
		f := newFixture(t)
		f.orderStatus(orderModel.OrderStatusCompleted)

		v, err := f.svc.Payment(ctx, caller, "o-1")
		require.NoError(t, err)
		assert.Equal(t, model.StateConfirmed, v.State)
		assert.Equal(t, "/orders/o-1", v.Redirect)
	})

	t.Run("Nothing to resume", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Payment(ctx, caller, "")
		assert.ErrorIs(t, err, ErrNoPendingPayment)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPending(t, caller.SessionID, time.Now().Add(5*time.Minute))
	f.orderStatus(orderModel.OrderStatusPending)

	v, err := f.svc.Cancel(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, model.StateCancelled, v.State)
	assert.False(t, f.mr.Exists("checkout:session:sess-0001:pending"))

	_, err = f.svc.Cancel(ctx, caller)
	assert.ErrorIs(t, err, ErrNoPendingPayment)

	_, err = f.svc.StartDraft(ctx, caller, plainGame.GameKey)
	assert.NoError(t, err)
}

func TestRepurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.orders.On("Repurchase", mock.Anything, "u-1", "o-9").
		Return(&orderModel.RepurchaseSnapshot{GameKey: lookupGame.GameKey, ProductID: diamonds.ID, UID: "12345678", Server: "2001", Quantity: 2}, nil)
	f.catalog.On("GetProduct", mock.Anything, diamonds.ID).Return(diamonds, nil)
	f.identity.On("NeedsLookup", mock.Anything, "12345678", "2001").Return(true)
	f.identity.On("Validate", mock.Anything, mock.Anything, "12345678", "2001").
		Return(&identityService.Result{DisplayName: "Layla"}, nil)

	v, err := f.svc.StartRepurchase(ctx, caller, "o-9")
	require.NoError(t, err)
	assert.Equal(t, lookupGame.GameKey, v.Draft.GameKey)
	assert.Equal(t, "2001", v.Draft.Server.Value)
	assert.Equal(t, 2, v.Draft.Quantity)
	assert.Equal(t, "20.00", v.Quote.Subtotal.StringFixed(2))

	require.Eventually(t, func() bool {
		v, err := f.svc.Draft(ctx, caller)
		return err == nil && v.Ready
	}, 2*time.Second, 10*time.Millisecond)

	t.Run("Requires login", func(t *testing.T) {
		_, err := f.svc.StartRepurchase(ctx, Caller{SessionID: "sess-0002"}, "o-9")
		assert.ErrorIs(t, err, ErrLoginRequired)
	})
}

func TestEvictIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.StartDraft(ctx, caller, plainGame.GameKey)
	require.NoError(t, err)

	assert.Equal(t, 0, f.svc.evictIdle())

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, f.svc.evictIdle())

	// 数据仍在存储中，重新访问时恢复
	f.svc.now = time.Now
	v, err := f.svc.Draft(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, plainGame.GameKey, v.Draft.GameKey)
}

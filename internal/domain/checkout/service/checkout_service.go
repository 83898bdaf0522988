package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	catalogModel "gamevault/internal/domain/catalog/model"
	catalogService "gamevault/internal/domain/catalog/service"
	"gamevault/internal/domain/checkout/model"
	"gamevault/internal/domain/checkout/store"
	couponModel "gamevault/internal/domain/coupon/model"
	couponService "gamevault/internal/domain/coupon/service"
	identityService "gamevault/internal/domain/identity/service"
	orderModel "gamevault/internal/domain/order/model"
	orderService "gamevault/internal/domain/order/service"
	"gamevault/internal/domain/payment/strategy"
	"gamevault/internal/domain/pricing"
	"gamevault/internal/pkg/config"
	"gamevault/internal/pkg/debounce"
	"gamevault/internal/pkg/realtime"
	"gamevault/pkg/logger"
	"gamevault/pkg/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalog 结账用到的目录查询
type Catalog interface {
	GetGame(ctx context.Context, gameKey string) (*catalogModel.Game, error)
	GetProduct(ctx context.Context, id int64) (*catalogModel.Product, error)
	ListPaymentMethods(ctx context.Context) ([]catalogModel.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id int64) (*catalogModel.PaymentMethod, error)
	ListServers(ctx context.Context, gameKey string) ([]catalogModel.Server, error)
}

// Coupons 券码校验
type Coupons interface {
	Resolve(ctx context.Context, userID, code string, subtotal decimal.Decimal) (*couponModel.UserCoupon, error)
}

// Orders 下单与订单读取
type Orders interface {
	Create(ctx context.Context, p orderModel.CreateOrderParams) (*orderModel.CreatedOrder, error)
	ReadableID(ctx context.Context, id string) string
	Get(ctx context.Context, userID, id string) (*orderModel.Order, error)
	Repurchase(ctx context.Context, userID, id string) (*orderModel.RepurchaseSnapshot, error)
}

// Strategies 按支付方式选择出码策略
type Strategies interface {
	For(method string) strategy.PaymentStrategy
}

// Caller 请求方身份：会话、偏好归属、登录用户（可为空）
type Caller struct {
	SessionID string
	Owner     string
	UserID    string
}

// Options 结账参数
type Options struct {
	DraftTTL           time.Duration
	ValidationDebounce time.Duration
	TickInterval       time.Duration
	RedirectSeconds    int
	IdleEviction       time.Duration
}

// OptionsFrom 由配置生成
func OptionsFrom(cfg config.CheckoutConfig) Options {
	return Options{
		DraftTTL:           cfg.DraftTTL,
		ValidationDebounce: cfg.ValidationDebounce,
		TickInterval:       cfg.TickInterval,
		RedirectSeconds:    cfg.RedirectSeconds,
		IdleEviction:       cfg.IdleEviction,
	}
}

// Deps 结账服务依赖
type Deps struct {
	Sessions store.SessionStore
	Prefs    store.PreferenceStore
	Catalog  Catalog
	Identity identityService.Validator
	Coupons  Coupons
	Orders   Orders
	Payments Strategies
	Realtime realtime.Subscriber
}

// MethodQuote 某个支付方式下的报价
type MethodQuote struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	IconURL string          `json:"iconUrl,omitempty"`
	FeeRate decimal.Decimal `json:"feeRate"`
	Quote   pricing.Quote   `json:"quote"`
}

// DraftView 草稿页数据
type DraftView struct {
	SessionID string                `json:"sessionId"`
	State     model.State           `json:"state"`
	Draft     *model.Draft          `json:"draft,omitempty"`
	Problems  []string              `json:"problems,omitempty"`
	Ready     bool                  `json:"ready"`
	Progress  int                   `json:"progress"`
	Quote     *pricing.Quote        `json:"quote,omitempty"`
	Methods   []MethodQuote         `json:"methods,omitempty"`
	Pending   *model.PendingPayment `json:"pending,omitempty"`
	Message   string                `json:"message,omitempty"`
}

// PaymentView 支付页数据
type PaymentView struct {
	SessionID        string                `json:"sessionId"`
	State            model.State           `json:"state"`
	Pending          *model.PendingPayment `json:"pending,omitempty"`
	DisplayID        string                `json:"displayId,omitempty"`
	RemainingSeconds int                   `json:"remainingSeconds"`
	Redirect         string                `json:"redirect,omitempty"`
	RedirectSeconds  int                   `json:"redirectSeconds,omitempty"`
	Message          string                `json:"message,omitempty"`
}

type CheckoutService interface {
	// Start 启动空闲会话清理，ctx 结束时停止
	Start(ctx context.Context)
	Stop()

	StartDraft(ctx context.Context, caller Caller, gameKey string) (*DraftView, error)
	StartRepurchase(ctx context.Context, caller Caller, orderID string) (*DraftView, error)
	Draft(ctx context.Context, caller Caller) (*DraftView, error)
	DiscardDraft(ctx context.Context, caller Caller) error
	UpdateIdentity(ctx context.Context, caller Caller, uid, server string) (*DraftView, error)
	SelectRole(ctx context.Context, caller Caller, roleID string) (*DraftView, error)
	SelectProduct(ctx context.Context, caller Caller, productID int64) (*DraftView, error)
	SetQuantity(ctx context.Context, caller Caller, quantity int) (*DraftView, error)
	SelectPaymentMethod(ctx context.Context, caller Caller, methodID int64) (*DraftView, error)
	ApplyCoupon(ctx context.Context, caller Caller, code string) (*DraftView, error)
	RemoveCoupon(ctx context.Context, caller Caller) (*DraftView, error)

	Submit(ctx context.Context, caller Caller, remitterName string) (*PaymentView, error)
	Payment(ctx context.Context, caller Caller, orderHint string) (*PaymentView, error)
	Cancel(ctx context.Context, caller Caller) (*PaymentView, error)
	// Watch 挂上一个视图，返回事件通道与解除函数
	Watch(ctx context.Context, caller Caller) (<-chan model.Event, func(), error)
}

var errStaleIdentity = errors.New("stale identity result")

type checkoutService struct {
	deps Deps
	opts Options

	debouncer *debounce.Debouncer
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewCheckoutService(deps Deps, opts Options) CheckoutService {
	return newCheckoutService(deps, opts)
}

func newCheckoutService(deps Deps, opts Options) *checkoutService {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &checkoutService{
		deps:      deps,
		opts:      opts,
		debouncer: debounce.New(opts.ValidationDebounce),
		now:       time.Now,
		sessions:  make(map[string]*session),
		baseCtx:   context.Background(),
	}
}

func (s *checkoutService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.baseCtx = ctx
	s.cancel = cancel
	s.mu.Unlock()

	if s.opts.IdleEviction <= 0 {
		return
	}
	go s.janitor(ctx)
}

func (s *checkoutService) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	s.debouncer.Stop()
	for _, sess := range sessions {
		<-sess.stopWatcher()
	}
}

// janitor 定期移除无视图、长时间未访问的会话，数据仍在 redis 中，下次访问时恢复
func (s *checkoutService) janitor(ctx context.Context) {
	interval := s.opts.IdleEviction / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.evictIdle(); n > 0 {
				logger.Log.Debug("Evicted idle checkout sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *checkoutService) evictIdle() int {
	cutoff := s.now().Add(-s.opts.IdleEviction)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.hub.count() > 0 || sess.watching() || sess.idleSince().After(cutoff) {
			continue
		}
		s.debouncer.Cancel(identityKey(id))
		delete(s.sessions, id)
		n++
	}
	return n
}

func (s *checkoutService) background() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func identityKey(sid string) string {
	return sid + ":identity"
}

func (s *checkoutService) observe(sid string) TransitionObserver {
	return func(from, to model.State) {
		metrics.Default().RecordTransition(string(from), string(to))
		logger.Log.Debug("Checkout transition",
			zap.String("session", sid),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
}

// session 取内存中的会话，不存在时从存储恢复
func (s *checkoutService) session(ctx context.Context, sid string) (*session, error) {
	now := s.now()

	s.mu.Lock()
	if sess, ok := s.sessions[sid]; ok {
		s.mu.Unlock()
		sess.touch(now)
		return sess, nil
	}
	s.mu.Unlock()

	draft, err := s.deps.Sessions.LoadDraft(ctx, sid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	pending, err := s.deps.Sessions.LoadPending(ctx, sid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	sess := newSession(sid, NewMachine(draft, pending, s.observe(sid)), now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sid]; ok {
		return existing, nil
	}
	s.sessions[sid] = sess
	return sess, nil
}

// resume 核对等待支付中的会话：到期即过期；首次恢复时读取订单状态
func (s *checkoutService) resume(ctx context.Context, sess *session) error {
	state, _, pending := sess.machine.Snapshot()
	if state != model.StateAwaitingPayment {
		return nil
	}

	if pending.Remaining(s.now()) <= 0 {
		if sess.machine.Expire() {
			s.finish(ctx, sess, model.StateExpired, pending)
		}
		return nil
	}
	if sess.isVerified() {
		return nil
	}

	order, err := s.deps.Orders.Get(ctx, pending.UserID, pending.OrderID)
	switch {
	case errors.Is(err, orderService.ErrOrderNotFound) || (err == nil && orderModel.IsClosed(order.Status)):
		logger.Log.Warn("Pending payment no longer valid",
			zap.String("session", sess.id),
			zap.String("order_id", pending.OrderID),
		)
		if sess.machine.Discard() {
			s.clearStore(ctx, sess.id)
		}
		return &RedirectError{Err: ErrExpiredSession, Redirect: RedirectHome}
	case err != nil:
		// 读取失败时保持等待支付，下次访问再核对
		logger.Log.Warn("Pending payment check failed", zap.String("order_id", pending.OrderID), zap.Error(err))
		return nil
	case orderModel.IsPaymentAcknowledged(order.Status):
		if sess.machine.Confirm() {
			s.finish(ctx, sess, model.StateConfirmed, pending)
		}
	}
	sess.markVerified()
	return nil
}

// finish 终态收尾：清理存储并通知视图
func (s *checkoutService) finish(ctx context.Context, sess *session, to model.State, pending *model.PendingPayment) {
	s.clearStore(ctx, sess.id)
	s.debouncer.Cancel(identityKey(sess.id))

	logger.Log.Info("Checkout finished",
		zap.String("session", sess.id),
		zap.String("state", string(to)),
		zap.String("order_id", pending.OrderID),
	)

	ev := model.Event{Type: terminalEvent(to), State: to, OrderID: pending.OrderID}
	if to == model.StateConfirmed {
		ev.Redirect = OrderURL(pending.OrderID)
		ev.Seconds = s.opts.RedirectSeconds
	}
	sess.hub.broadcast(ev)
}

func (s *checkoutService) clearStore(ctx context.Context, sid string) {
	if err := s.deps.Sessions.Clear(context.WithoutCancel(ctx), sid); err != nil {
		logger.Log.Error("Clear checkout session failed", zap.String("session", sid), zap.Error(err))
	}
}

func terminalEvent(state model.State) model.EventType {
	switch state {
	case model.StateConfirmed:
		return model.EventConfirmed
	case model.StateExpired:
		return model.EventExpired
	default:
		return model.EventCancelled
	}
}

// OrderURL 订单详情页地址
func OrderURL(orderID string) string {
	return "/orders/" + orderID
}

// StartDraft 以游戏开始结账，同一游戏的未过期草稿直接沿用
func (s *checkoutService) StartDraft(ctx context.Context, caller Caller, gameKey string) (*DraftView, error) {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.pendingGuard(ctx, sess); err != nil {
		return s.snapshotView(sess), err
	}

	game, err := s.deps.Catalog.GetGame(ctx, gameKey)
	if err != nil {
		return nil, err
	}

	_, current, _ := sess.machine.Snapshot()
	if current != nil && current.GameKey == game.GameKey && !current.Expired(s.now()) {
		return s.view(ctx, sess, "")
	}

	d := model.NewDraft(game.GameKey, game.Name, s.now(), s.opts.DraftTTL)
	s.hydratePreference(ctx, caller.Owner, game, d)
	s.defaultPaymentMethod(ctx, d)

	return s.install(ctx, sess, game, d)
}

// StartRepurchase 以历史订单生成草稿
func (s *checkoutService) StartRepurchase(ctx context.Context, caller Caller, orderID string) (*DraftView, error) {
	if caller.UserID == "" {
		return nil, ErrLoginRequired
	}
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.pendingGuard(ctx, sess); err != nil {
		return s.snapshotView(sess), err
	}

	snap, err := s.deps.Orders.Repurchase(ctx, caller.UserID, orderID)
	if err != nil {
		return nil, err
	}
	game, err := s.deps.Catalog.GetGame(ctx, snap.GameKey)
	if err != nil {
		return nil, err
	}

	d := model.NewDraft(game.GameKey, game.Name, s.now(), s.opts.DraftTTL)
	d.PlayerUID = snap.UID
	if snap.Server != "" && catalogModel.RequiresServer(game.ServerRequirement()) {
		d.Server = s.resolveServer(ctx, game, snap.Server)
	}
	d.Quantity = snap.Quantity
	if product, err := s.deps.Catalog.GetProduct(ctx, snap.ProductID); err == nil && product.GameKey == game.GameKey {
		d.Product = &model.ProductRef{ID: product.ID, Name: product.Name, Price: product.Price}
	}
	s.defaultPaymentMethod(ctx, d)

	return s.install(ctx, sess, game, d)
}

// pendingGuard 存在待支付订单时不能开始新草稿
func (s *checkoutService) pendingGuard(ctx context.Context, sess *session) error {
	if err := s.resume(ctx, sess); err != nil && !errors.Is(err, ErrExpiredSession) {
		return err
	}
	if sess.machine.State() == model.StateAwaitingPayment {
		return ErrPendingPaymentExists
	}
	return nil
}

func (s *checkoutService) install(ctx context.Context, sess *session, game *catalogModel.Game, d *model.Draft) (*DraftView, error) {
	if err := sess.machine.StartDraft(d); err != nil {
		return nil, ErrPendingPaymentExists
	}
	if err := s.deps.Sessions.SaveDraft(ctx, sess.id, d); err != nil {
		return nil, err
	}
	logger.Log.Info("Checkout draft started", zap.String("session", sess.id), zap.String("game", game.GameKey))

	if d.PlayerUID != "" {
		s.scheduleValidation(ctx, sess, game, d)
	}
	return s.view(ctx, sess, "")
}

func (s *checkoutService) hydratePreference(ctx context.Context, owner string, game *catalogModel.Game, d *model.Draft) {
	if owner == "" {
		return
	}
	pref, err := s.deps.Prefs.LoadPreference(ctx, owner, game.GameKey)
	if err != nil {
		logger.Log.Warn("Load checkout preference failed", zap.String("game", game.GameKey), zap.Error(err))
		return
	}
	d.PlayerUID = pref.UID
	if pref.Server != "" && catalogModel.RequiresServer(game.ServerRequirement()) {
		d.Server = model.ServerSelection{Value: pref.Server, Name: pref.ServerName}
	}
}

// defaultPaymentMethod 默认选中第一个可用支付方式
func (s *checkoutService) defaultPaymentMethod(ctx context.Context, d *model.Draft) {
	methods, err := s.deps.Catalog.ListPaymentMethods(ctx)
	if err != nil || len(methods) == 0 {
		return
	}
	d.PaymentMethodID = methods[0].ID
}

// resolveServer 按取值或展示名匹配服务器列表，匹配不到时原样使用
func (s *checkoutService) resolveServer(ctx context.Context, game *catalogModel.Game, value string) model.ServerSelection {
	value = strings.TrimSpace(value)
	sel := model.ServerSelection{Value: value}
	if _, ok := game.ServerRequirement().(catalogModel.RegionChoice); !ok || value == "" {
		return sel
	}

	servers, err := s.deps.Catalog.ListServers(ctx, game.GameKey)
	if err != nil {
		logger.Log.Warn("List servers failed", zap.String("game", game.GameKey), zap.Error(err))
		return sel
	}
	for _, srv := range servers {
		if srv.Value == value || srv.Name == value {
			return model.ServerSelection{Value: srv.Value, Name: srv.Name}
		}
	}
	return sel
}

func (s *checkoutService) Draft(ctx context.Context, caller Caller) (*DraftView, error) {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.liveDraft(ctx, sess); err != nil {
		if errors.Is(err, ErrPendingPaymentExists) {
			return s.snapshotView(sess), err
		}
		return nil, err
	}
	return s.view(ctx, sess, "")
}

// DiscardDraft 放弃当前草稿
func (s *checkoutService) DiscardDraft(ctx context.Context, caller Caller) error {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return err
	}
	switch sess.machine.State() {
	case model.StateSubmitting, model.StateAwaitingPayment:
		return ErrPendingPaymentExists
	}
	sess.machine.ClearDraft()
	s.debouncer.Cancel(identityKey(sess.id))
	return s.deps.Sessions.ClearDraft(ctx, sess.id)
}

// liveDraft 当前可编辑的草稿；硬过期的草稿被删除
func (s *checkoutService) liveDraft(ctx context.Context, sess *session) (*model.Draft, error) {
	state, d, _ := sess.machine.Snapshot()
	switch {
	case state == model.StateAwaitingPayment || state == model.StateSubmitting:
		return nil, ErrPendingPaymentExists
	case d == nil:
		return nil, &RedirectError{Err: ErrNoDraft, Redirect: RedirectHome}
	case d.Expired(s.now()):
		sess.machine.ClearDraft()
		s.debouncer.Cancel(identityKey(sess.id))
		if err := s.deps.Sessions.ClearDraft(ctx, sess.id); err != nil {
			logger.Log.Warn("Clear expired draft failed", zap.String("session", sess.id), zap.Error(err))
		}
		return nil, &RedirectError{Err: ErrExpiredSession, Redirect: RedirectHome}
	}
	return d, nil
}

// mutate 修改草稿并保存；fn 返回的提示会带回给视图
func (s *checkoutService) mutate(ctx context.Context, caller Caller, fn func(d *model.Draft) (string, error)) (*session, *model.Draft, string, error) {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, nil, "", err
	}
	if _, err := s.liveDraft(ctx, sess); err != nil {
		return nil, nil, "", err
	}

	var msg string
	updated, err := sess.machine.UpdateDraft(func(d *model.Draft) error {
		m, err := fn(d)
		msg = m
		return err
	})
	if errors.Is(err, ErrInvalidTransition) {
		return nil, nil, "", ErrPendingPaymentExists
	}
	if err != nil {
		return nil, nil, "", err
	}
	if err := s.deps.Sessions.SaveDraft(ctx, sess.id, updated); err != nil {
		return nil, nil, "", err
	}
	return sess, updated, msg, nil
}

// UpdateIdentity 修改 UID/服务器：作废旧校验结果，记住偏好，需要远程校验时防抖触发
func (s *checkoutService) UpdateIdentity(ctx context.Context, caller Caller, uid, server string) (*DraftView, error) {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	current, err := s.liveDraft(ctx, sess)
	if err != nil {
		return nil, err
	}
	game, err := s.deps.Catalog.GetGame(ctx, current.GameKey)
	if err != nil {
		return nil, err
	}

	uid = strings.TrimSpace(uid)
	sel := model.ServerSelection{}
	if catalogModel.RequiresServer(game.ServerRequirement()) {
		sel = s.resolveServer(ctx, game, server)
	}

	sess, d, _, err := s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
		d.PlayerUID = uid
		d.Server = sel
		d.ResetIdentity()
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	if caller.Owner != "" {
		pref := model.Preference{UID: uid, Server: sel.Value, ServerName: sel.Name}
		if err := s.deps.Prefs.SavePreference(ctx, caller.Owner, game.GameKey, pref); err != nil {
			logger.Log.Warn("Save checkout preference failed", zap.String("game", game.GameKey), zap.Error(err))
		}
	}

	if uid == "" {
		s.debouncer.Cancel(identityKey(sess.id))
		return s.view(ctx, sess, "")
	}
	s.scheduleValidation(ctx, sess, game, d)
	return s.view(ctx, sess, "")
}

// scheduleValidation 远程校验走防抖，其余情况同步得出结果
func (s *checkoutService) scheduleValidation(ctx context.Context, sess *session, game *catalogModel.Game, d *model.Draft) {
	uid, server, gen := d.PlayerUID, d.Server.Value, d.IdentityGen

	if !s.deps.Identity.NeedsLookup(game, uid, server) {
		s.debouncer.Cancel(identityKey(sess.id))
		res, err := s.deps.Identity.Validate(ctx, game, uid, server)
		s.applyIdentity(ctx, sess, gen, res, err)
		return
	}

	if _, err := sess.machine.UpdateDraft(func(d *model.Draft) error {
		if d.IdentityGen != gen {
			return errStaleIdentity
		}
		d.IdentityStatus = model.IdentityPending
		return nil
	}); err == nil {
		s.saveDraftQuietly(ctx, sess)
	}

	s.debouncer.Trigger(identityKey(sess.id), func() {
		bg := s.background()
		res, err := s.deps.Identity.Validate(bg, game, uid, server)
		if s.applyIdentity(bg, sess, gen, res, err) {
			_, d, _ := sess.machine.Snapshot()
			sess.hub.broadcast(model.Event{Type: model.EventDraft, State: model.StateConfiguring, Draft: d})
		}
	})
}

// applyIdentity 写入校验结果；草稿已被再次修改时丢弃
func (s *checkoutService) applyIdentity(ctx context.Context, sess *session, gen uint64, res *identityService.Result, verr error) bool {
	_, err := sess.machine.UpdateDraft(func(d *model.Draft) error {
		if d.IdentityGen != gen {
			return errStaleIdentity
		}
		d.Roles = nil
		d.SelectedRoleID = ""
		d.PlayerDisplayName = ""
		d.PlaceholderName = false
		d.IdentityMessage = ""

		switch {
		case verr != nil:
			d.IdentityStatus = model.IdentityInvalid
			d.IdentityMessage = verr.Error()
		case res == nil:
			d.IdentityStatus = model.IdentityIdle
		case res.NeedsSelection():
			d.IdentityStatus = model.IdentitySelectRole
			d.Roles = toRoles(res.Roles)
		default:
			d.IdentityStatus = model.IdentityValid
			d.PlayerDisplayName = res.DisplayName
			d.PlaceholderName = res.Placeholder
			if res.RoleID != "" {
				d.Roles = []model.Role{{ID: res.RoleID, Name: res.DisplayName}}
				d.SelectedRoleID = res.RoleID
			}
		}
		return nil
	})
	if err != nil {
		return false
	}
	s.saveDraftQuietly(ctx, sess)
	return true
}

func toRoles(in []identityService.Role) []model.Role {
	out := make([]model.Role, len(in))
	for i, r := range in {
		out[i] = model.Role{ID: r.ID, Name: r.Name}
	}
	return out
}

func (s *checkoutService) saveDraftQuietly(ctx context.Context, sess *session) {
	_, d, _ := sess.machine.Snapshot()
	if d == nil {
		return
	}
	if err := s.deps.Sessions.SaveDraft(ctx, sess.id, d); err != nil {
		logger.Log.Warn("Save checkout draft failed", zap.String("session", sess.id), zap.Error(err))
	}
}

// SelectRole 多角色时选择其一
func (s *checkoutService) SelectRole(ctx context.Context, caller Caller, roleID string) (*DraftView, error) {
	sess, _, _, err := s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
		for _, r := range d.Roles {
			if r.ID == roleID {
				d.SelectedRoleID = r.ID
				d.PlayerDisplayName = r.Name
				d.IdentityStatus = model.IdentityValid
				d.IdentityMessage = ""
				return "", nil
			}
		}
		return "", ErrRoleNotFound
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, "")
}

// SelectProduct 选择同一游戏下的商品
func (s *checkoutService) SelectProduct(ctx context.Context, caller Caller, productID int64) (*DraftView, error) {
	product, err := s.deps.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	sess, _, msg, err := s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
		if product.GameKey != d.GameKey || !product.IsActive {
			return "", catalogService.ErrProductNotFound
		}
		d.Product = &model.ProductRef{ID: product.ID, Name: product.Name, Price: product.Price}
		return dropIneligibleCoupon(d), nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, msg)
}

func (s *checkoutService) SetQuantity(ctx context.Context, caller Caller, quantity int) (*DraftView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	sess, _, msg, err := s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
		d.Quantity = quantity
		return dropIneligibleCoupon(d), nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, msg)
}

func (s *checkoutService) SelectPaymentMethod(ctx context.Context, caller Caller, methodID int64) (*DraftView, error) {
	method, err := s.deps.Catalog.GetPaymentMethod(ctx, methodID)
	if err != nil {
		return nil, err
	}
	sess, _, _, err := s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
		d.PaymentMethodID = method.ID
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, "")
}

// ApplyCoupon 校验后替换草稿上的券；失败时草稿不变
func (s *checkoutService) ApplyCoupon(ctx context.Context, caller Caller, code string) (*DraftView, error) {
	if caller.UserID == "" {
		return nil, couponService.ErrLoginRequired
	}
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	current, err := s.liveDraft(ctx, sess)
	if err != nil {
		return nil, err
	}
	if current.Product == nil {
		return nil, &DraftError{Problems: []string{"Product selection is required"}}
	}

	uc, err := s.deps.Coupons.Resolve(ctx, caller.UserID, code, draftSubtotal(current))
	if err != nil {
		return nil, err
	}
	applied := &model.AppliedCoupon{
		UserCouponID:  uc.ID,
		CouponID:      uc.Coupon.ID,
		Code:          uc.Coupon.Code,
		Description:   uc.Coupon.Description,
		Rule:          uc.Coupon.Rule(),
		MinOrderValue: uc.Coupon.MinOrderValue,
	}

	sess, _, _, err = s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
		if draftSubtotal(d).LessThan(applied.MinOrderValue) {
			return "", &couponService.MinSpendError{MinOrderValue: applied.MinOrderValue}
		}
		d.Coupon = applied
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, "Coupon "+applied.Code+" applied.")
}

func (s *checkoutService) RemoveCoupon(ctx context.Context, caller Caller) (*DraftView, error) {
	sess, _, _, err := s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
		d.Coupon = nil
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, "")
}

// Submit 提交草稿：下单、出码、进入等待支付
func (s *checkoutService) Submit(ctx context.Context, caller Caller, remitterName string) (*PaymentView, error) {
	if caller.UserID == "" {
		return nil, ErrLoginRequired
	}
	remitterName = strings.TrimSpace(remitterName)
	if remitterName == "" {
		return nil, ErrRemitterRequired
	}

	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	current, err := s.liveDraft(ctx, sess)
	if err != nil {
		return nil, err
	}

	game, err := s.deps.Catalog.GetGame(ctx, current.GameKey)
	if err != nil {
		return nil, err
	}
	if problems := draftProblems(game, current); len(problems) > 0 {
		return nil, &DraftError{Problems: problems}
	}
	if current.PaymentMethodID == 0 {
		return nil, ErrPaymentMethodRequired
	}
	method, err := s.deps.Catalog.GetPaymentMethod(ctx, current.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	// 以最新价格为准，变价时更新草稿并让玩家确认
	product, err := s.deps.Catalog.GetProduct(ctx, current.Product.ID)
	if err != nil {
		return nil, err
	}
	if !product.Price.Equal(current.Product.Price) {
		if _, _, _, err := s.mutate(ctx, caller, func(d *model.Draft) (string, error) {
			if d.Product != nil && d.Product.ID == product.ID {
				d.Product.Price = product.Price
			}
			return dropIneligibleCoupon(d), nil
		}); err != nil {
			return nil, err
		}
		return nil, ErrPriceChanged
	}

	d, err := sess.machine.BeginSubmit()
	if err != nil {
		return nil, err
	}
	// 校验之后草稿仍可能被防抖的身份结果改写，以进入提交时的草稿为准
	if problems := draftProblems(game, d); len(problems) > 0 {
		sess.machine.SubmitFailed()
		return nil, &DraftError{Problems: problems}
	}

	// 下单开始后不随请求取消
	ctx = context.WithoutCancel(ctx)

	params := orderModel.CreateOrderParams{
		UserID:        caller.UserID,
		PaymentMethod: method.Name,
		GameUID:       d.PlayerUID,
		GameNickname:  d.PlayerDisplayName,
		RemitterName:  remitterName,
		Items:         []orderModel.LineItem{{ProductID: d.Product.ID, Quantity: d.Quantity}},
	}
	if label := d.Server.Label(); label != "" {
		params.ServerRegion = &label
	}
	if d.Coupon != nil {
		code := d.Coupon.Code
		params.CouponCode = &code
	}

	created, err := s.deps.Orders.Create(ctx, params)
	if err != nil {
		sess.machine.SubmitFailed()
		return nil, err
	}
	sess.machine.OrderCreated()
	s.debouncer.Cancel(identityKey(sess.id))
	if err := s.deps.Sessions.ClearDraft(ctx, sess.id); err != nil {
		logger.Log.Warn("Clear submitted draft failed", zap.String("session", sess.id), zap.Error(err))
	}

	readable := s.deps.Orders.ReadableID(ctx, created.ID)

	artifact, err := s.deps.Payments.For(method.Name).Issue(ctx, created.ID, created.Total)
	if err != nil {
		sess.machine.ArtifactFailed()
		logger.Log.Error("Payment artifact failed",
			zap.String("order_id", created.ID),
			zap.String("method", method.Name),
			zap.Error(err),
		)
		return nil, &ArtifactError{OrderID: created.ID, ReadableID: readable, Cause: err}
	}

	pending := &model.PendingPayment{
		OrderID:       created.ID,
		ReadableID:    readable,
		UserID:        caller.UserID,
		GameKey:       d.GameKey,
		PaymentMethod: method.Name,
		TotalAmount:   created.Total,
		QRImageData:   artifact.QRImageData,
		ReferenceID:   artifact.ReferenceID,
		ExpiresAt:     artifact.ExpiresAt,
		CreatedAt:     s.now(),
	}
	if err := s.deps.Sessions.SavePending(ctx, sess.id, pending); err != nil {
		logger.Log.Error("Save pending payment failed", zap.String("order_id", created.ID), zap.Error(err))
	}
	if err := sess.machine.AwaitPayment(pending); err != nil {
		return nil, err
	}
	sess.markVerified()

	logger.Log.Info("Awaiting payment",
		zap.String("session", sess.id),
		zap.String("order_id", created.ID),
		zap.Time("expires_at", pending.ExpiresAt),
	)
	return s.paymentView(sess), nil
}

// Payment 支付页恢复。orderHint 为地址栏中的订单号，会话数据丢失时使用
func (s *checkoutService) Payment(ctx context.Context, caller Caller, orderHint string) (*PaymentView, error) {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	if !ownsPending(caller, sess) {
		return nil, &RedirectError{Err: ErrNoPendingPayment, Redirect: RedirectHome}
	}
	if err := s.resume(ctx, sess); err != nil {
		return nil, err
	}

	if _, _, pending := sess.machine.Snapshot(); pending != nil {
		return s.paymentView(sess), nil
	}

	orderHint = strings.TrimSpace(orderHint)
	if orderHint != "" && caller.UserID != "" {
		order, err := s.deps.Orders.Get(ctx, caller.UserID, orderHint)
		switch {
		case err == nil && orderModel.IsPaymentAcknowledged(order.Status):
			sess.machine.ConfirmOrder(&model.PendingPayment{
				OrderID:       order.ID,
				ReadableID:    order.ReadableID,
				UserID:        order.UserID,
				GameKey:       order.GameKey(),
				PaymentMethod: order.PaymentMethod,
				TotalAmount:   order.TotalAmount,
			})
			return s.paymentView(sess), nil
		case err == nil:
			return nil, &RedirectError{Err: ErrSessionDataLost, Redirect: RedirectHistory}
		case !errors.Is(err, orderService.ErrOrderNotFound):
			return nil, err
		}
	}
	return nil, &RedirectError{Err: ErrNoPendingPayment, Redirect: RedirectHome}
}

// Cancel 放弃待支付订单（换支付方式）
func (s *checkoutService) Cancel(ctx context.Context, caller Caller) (*PaymentView, error) {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	_, _, pending := sess.machine.Snapshot()
	if !ownsPending(caller, sess) || !sess.machine.Cancel() {
		return nil, ErrNoPendingPayment
	}
	sess.stopWatcher()
	s.finish(ctx, sess, model.StateCancelled, pending)
	return s.paymentView(sess), nil
}

func (s *checkoutService) Watch(ctx context.Context, caller Caller) (<-chan model.Event, func(), error) {
	sess, err := s.session(ctx, caller.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if !ownsPending(caller, sess) {
		return nil, nil, &RedirectError{Err: ErrNoPendingPayment, Redirect: RedirectHome}
	}
	if err := s.resume(ctx, sess); err != nil {
		return nil, nil, err
	}

	ch, _ := sess.hub.attach()
	state, d, pending := sess.machine.Snapshot()
	ch <- s.snapshotEvent(state, d, pending)

	if state == model.StateAwaitingPayment {
		sess.startWatcher(func(wctx context.Context) {
			s.watch(wctx, sess, pending)
		})
	}

	detach := func() {
		sess.touch(s.now())
		if sess.hub.detach(ch) == 0 {
			sess.stopWatcher()
			sess.unverify()
		}
	}
	return ch, detach, nil
}

// ownsPending 已登录时只能访问自己账号下的待支付订单
func ownsPending(caller Caller, sess *session) bool {
	_, _, pending := sess.machine.Snapshot()
	return pending == nil || caller.UserID == "" || pending.UserID == caller.UserID
}

func (s *checkoutService) snapshotEvent(state model.State, d *model.Draft, pending *model.PendingPayment) model.Event {
	ev := model.Event{Type: model.EventSnapshot, State: state, Draft: d}
	if pending != nil {
		ev.OrderID = pending.OrderID
		ev.Pending = publicPending(state, pending)
		if state == model.StateAwaitingPayment {
			ev.Seconds = remainingSeconds(pending.Remaining(s.now()))
		}
		if state == model.StateConfirmed {
			ev.Redirect = OrderURL(pending.OrderID)
		}
	}
	return ev
}

// remainingSeconds 倒计时显示的整秒数
func remainingSeconds(d time.Duration) int {
	return int(d / time.Second)
}

// publicPending 终态下不再下发二维码
func publicPending(state model.State, p *model.PendingPayment) *model.PendingPayment {
	if p == nil {
		return nil
	}
	out := p.Clone()
	if state != model.StateAwaitingPayment {
		out.QRImageData = ""
	}
	return out
}

func (s *checkoutService) paymentView(sess *session) *PaymentView {
	state, _, pending := sess.machine.Snapshot()
	v := &PaymentView{SessionID: sess.id, State: state, Pending: publicPending(state, pending)}
	if pending == nil {
		return v
	}
	v.DisplayID = pending.DisplayID()
	switch state {
	case model.StateAwaitingPayment:
		v.RemainingSeconds = remainingSeconds(pending.Remaining(s.now()))
	case model.StateConfirmed:
		v.Redirect = OrderURL(pending.OrderID)
		v.RedirectSeconds = s.opts.RedirectSeconds
		v.Message = "Payment Confirmed! Your order is now being processed."
	case model.StateExpired:
		v.Message = "Payment time expired. Please place a new order."
	case model.StateCancelled:
		v.Message = "Payment cancelled."
	}
	return v
}

func (s *checkoutService) snapshotView(sess *session) *DraftView {
	state, d, pending := sess.machine.Snapshot()
	return &DraftView{SessionID: sess.id, State: state, Draft: d, Pending: publicPending(state, pending)}
}

// view 草稿页数据：检查结果、完成度、各支付方式报价
func (s *checkoutService) view(ctx context.Context, sess *session, message string) (*DraftView, error) {
	v := s.snapshotView(sess)
	v.Message = message
	d := v.Draft
	if d == nil {
		return v, nil
	}

	game, err := s.deps.Catalog.GetGame(ctx, d.GameKey)
	if err != nil {
		return nil, err
	}
	v.Problems = draftProblems(game, d)
	v.Ready = len(v.Problems) == 0
	v.Progress = draftProgress(game, d)

	if d.Product == nil {
		return v, nil
	}
	rule := couponRule(d)

	methods, err := s.deps.Catalog.ListPaymentMethods(ctx)
	if err != nil && !errors.Is(err, catalogService.ErrNoPaymentMethods) {
		return nil, err
	}
	for i := range methods {
		m := &methods[i]
		q := pricing.Calculate(d.Product.Price, d.Quantity, rule, m.Fee())
		v.Methods = append(v.Methods, MethodQuote{ID: m.ID, Name: m.Name, IconURL: m.IconURL, FeeRate: q.FeeRate, Quote: q})
		if m.ID == d.PaymentMethodID {
			v.Quote = &q
		}
	}
	if v.Quote == nil {
		q := pricing.Calculate(d.Product.Price, d.Quantity, rule, nil)
		v.Quote = &q
	}
	return v, nil
}

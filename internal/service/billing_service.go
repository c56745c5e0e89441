package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
)

var (
	ErrUnknownPrice     = errors.New("未知的价格")
	ErrSessionNotPaid   = errors.New("支付未完成")
	ErrNotTokenPack     = errors.New("该订单不是 token 包")
	ErrSessionOwnership = errors.New("订单不属于当前用户")
	ErrNoStripeCustomer = errors.New("用户没有关联的 Stripe 客户")
)

// StripeClient 计费服务依赖的 Stripe 操作集合。
// 生产实现是 billing.Client，测试里用假实现替换。
type StripeClient interface {
	GetSubscription(id string) (*stripe.Subscription, error)
	GetCustomer(id string) (*stripe.Customer, error)
	GetCheckoutSession(id string) (*stripe.CheckoutSession, error)
	NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

// PriceClassification 一个价格 ID 的业务含义
type PriceClassification struct {
	Key    string // prices 配置里的 key
	Kind   string // subscription / token_pack
	Plan   string // subscription 专用
	Cycle  string // subscription 专用
	Tokens int64  // token_pack 专用
}

const (
	PriceKindSubscription = "subscription"
	PriceKindTokenPack    = "token_pack"
)

type BillingService struct {
	userRepo   *repository.UserRepository
	grantRepo  *repository.TokenGrantRepository
	stripe     StripeClient
	cfg        *config.Config
	priceTable map[string]PriceClassification
}

func NewBillingService(
	userRepo *repository.UserRepository,
	grantRepo *repository.TokenGrantRepository,
	stripeClient StripeClient,
	cfg *config.Config,
) *BillingService {
	return &BillingService{
		userRepo:   userRepo,
		grantRepo:  grantRepo,
		stripe:     stripeClient,
		cfg:        cfg,
		priceTable: buildPriceTable(&cfg.Stripe.Prices),
	}
}

// buildPriceTable 把 prices 配置展开成 价格ID -> 分类 的静态表。
// 每个受支持的价格都显式列出：配置漏掉的价格会归到"未识别"，
// 落在安全一侧（不写权益），而不是让 handler 崩掉。
func buildPriceTable(prices *config.PricesConfig) map[string]PriceClassification {
	table := make(map[string]PriceClassification)

	add := func(id string, c PriceClassification) {
		if id == "" {
			return
		}
		table[id] = c
	}

	add(prices.ProMonthly, PriceClassification{
		Key: "pro_monthly", Kind: PriceKindSubscription, Plan: model.PlanPro, Cycle: model.CycleMonthly,
	})
	add(prices.ProYearly, PriceClassification{
		Key: "pro_yearly", Kind: PriceKindSubscription, Plan: model.PlanPro, Cycle: model.CycleYearly,
	})
	add(prices.TeamMonthly, PriceClassification{
		Key: "team_monthly", Kind: PriceKindSubscription, Plan: model.PlanTeam, Cycle: model.CycleMonthly,
	})
	add(prices.TeamYearly, PriceClassification{
		Key: "team_yearly", Kind: PriceKindSubscription, Plan: model.PlanTeam, Cycle: model.CycleYearly,
	})
	add(prices.Tokens100K, PriceClassification{
		Key: "tokens_100k", Kind: PriceKindTokenPack, Tokens: 100000,
	})
	add(prices.Tokens500K, PriceClassification{
		Key: "tokens_500k", Kind: PriceKindTokenPack, Tokens: 500000,
	})
	add(prices.Tokens1M, PriceClassification{
		Key: "tokens_1m", Kind: PriceKindTokenPack, Tokens: 1000000,
	})

	return table
}

// ClassifyPrice 查价目表，查不到返回 false
func (s *BillingService) ClassifyPrice(priceID string) (PriceClassification, bool) {
	c, ok := s.priceTable[priceID]
	return c, ok
}

// classificationByKey 按配置 key 查分类（Checkout 创建入口用）
func (s *BillingService) classificationByKey(key string) (string, PriceClassification, bool) {
	for id, c := range s.priceTable {
		if c.Key == key {
			return id, c, true
		}
	}
	return "", PriceClassification{}, false
}

// subscriptionRef 事件里订阅信息的归一化形态。
// 三种互斥情况：payload 自带完整订阅 / 只有订阅 ID 需要回查 / 与订阅无关。
type subscriptionRef struct {
	sub   *stripe.Subscription
	subID string
}

func (r subscriptionRef) empty() bool {
	return r.sub == nil && r.subID == ""
}

// subscriptionRefFromEvent 把各种事件形态归一化成 subscriptionRef，
// 下游不再对 payload 做逐字段试探
func subscriptionRefFromEvent(event *stripe.Event) (subscriptionRef, error) {
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return subscriptionRef{}, fmt.Errorf("failed to parse subscription payload: %w", err)
		}
		return subscriptionRef{sub: &sub}, nil

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return subscriptionRef{}, fmt.Errorf("failed to parse checkout session payload: %w", err)
		}
		// 一次性支付没有订阅引用，属于正常情况
		if sess.Subscription == nil || sess.Subscription.ID == "" {
			return subscriptionRef{}, nil
		}
		return subscriptionRef{subID: sess.Subscription.ID}, nil

	case "invoice.paid", "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return subscriptionRef{}, fmt.Errorf("failed to parse invoice payload: %w", err)
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return subscriptionRef{}, nil
		}
		return subscriptionRef{subID: inv.Subscription.ID}, nil
	}

	// 其它事件类型与权益无关
	return subscriptionRef{}, nil
}

// HandleEvent 处理一条已验签的 webhook 事件。
// 返回 error 表示出现了应该让 Stripe 重投的暂时性故障（上游拉取失败、数据库写失败），
// handler 据此回 500。解析不出用户、价格不认识这类情况不算错误，静默跳过。
func (s *BillingService) HandleEvent(event *stripe.Event) error {
	ref, err := subscriptionRefFromEvent(event)
	if err != nil {
		return err
	}
	if ref.empty() {
		return nil
	}

	sub := ref.sub
	if sub == nil {
		// 只有引用，向 Stripe 回查。拉取失败必须报错而不是继续，
		// 权益写入不能基于猜出来的数据。
		sub, err = s.stripe.GetSubscription(ref.subID)
		if err != nil {
			return err
		}
	}

	uid, err := s.resolveUserUID(sub)
	if err != nil {
		return err
	}
	if uid == "" {
		log.Printf("Webhook %s: no resolvable user for subscription %s, skipping", event.Type, sub.ID)
		return nil
	}

	// 取消事件无条件降级到 FREE，价格是什么不重要
	if event.Type == "customer.subscription.deleted" {
		return s.userRepo.UpsertEntitlement(uid, model.PlanFree, "")
	}

	priceID := firstPriceID(sub)
	if priceID == "" {
		log.Printf("Webhook %s: subscription %s has no price item, skipping", event.Type, sub.ID)
		return nil
	}

	classification, ok := s.ClassifyPrice(priceID)
	if !ok {
		// 没配进价目表的价格不动权益，新 SKU 上线忘了配表时静默跳过
		log.Printf("Webhook %s: unrecognized price %s on subscription %s, skipping", event.Type, priceID, sub.ID)
		return nil
	}
	if classification.Kind != PriceKindSubscription {
		// token 包走 ConfirmCheckout 入账，不属于套餐流程
		return nil
	}

	return s.userRepo.UpsertEntitlement(uid, classification.Plan, classification.Cycle)
}

// resolveUserUID 订阅 -> 应用用户 uid。
// 优先读订阅 metadata.uid（创建 Checkout 时由我们自己写入，权威来源）；
// 没有就回查 Stripe 客户的 metadata。客户查不到或没有 uid 返回空串，
// 让调用方跳过写入并正常应答，避免 Stripe 对一条永远解析不出的事件反复重投。
func (s *BillingService) resolveUserUID(sub *stripe.Subscription) (string, error) {
	if uid := sub.Metadata["uid"]; uid != "" {
		return uid, nil
	}

	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", nil
	}

	cust, err := s.stripe.GetCustomer(sub.Customer.ID)
	if err != nil {
		log.Printf("Failed to fetch customer %s: %v", sub.Customer.ID, err)
		return "", nil
	}

	return cust.Metadata["uid"], nil
}

// firstPriceID 取订阅第一条行项目的价格 ID。
// 多行项目的订阅不在支持范围内，只看 items[0]，其余行项目记一条警告。
func firstPriceID(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if len(sub.Items.Data) > 1 {
		log.Printf("Subscription %s has %d price items, classifying items[0] only", sub.ID, len(sub.Items.Data))
	}
	item := sub.Items.Data[0]
	if item.Price == nil {
		return ""
	}
	return item.Price.ID
}

// CreateCheckoutSession 为用户创建 Stripe Checkout 托管支付页。
// 订阅价格挂 subscription_data.metadata.uid，webhook 的身份解析走快路径。
func (s *BillingService) CreateCheckoutSession(userID int64, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	priceID, classification, ok := s.classificationByKey(req.Price)
	if !ok {
		return nil, ErrUnknownPrice
	}

	customerID, err := s.ensureStripeCustomer(user)
	if err != nil {
		return nil, err
	}

	frontend := s.cfg.Stripe.FrontendURL
	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(frontend + "/account/billing?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(frontend + "/pricing"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}

	if classification.Kind == PriceKindSubscription {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"uid": user.UID},
		}
	} else {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.Metadata = map[string]string{"uid": user.UID}
	}

	sess, err := s.stripe.NewCheckoutSession(params)
	if err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{URL: sess.URL}, nil
}

// CreatePortalSession 创建 Stripe 客户自助门户（改卡、退订入口）
func (s *BillingService) CreatePortalSession(userID int64) (*dto.CheckoutResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user.StripeCustomerID == nil {
		return nil, ErrNoStripeCustomer
	}

	sess, err := s.stripe.NewPortalSession(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*user.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.Stripe.FrontendURL + "/account/billing"),
	})
	if err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{URL: sess.URL}, nil
}

// ConfirmCheckout token 包入账。前端支付完成后带 session_id 回调。
// token_grants.session_id 的唯一索引保证同一个 session 只入账一次。
func (s *BillingService) ConfirmCheckout(userID int64, sessionID string) (*dto.ConfirmCheckoutResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	// 已入账过直接返回当前余额
	exists, err := s.grantRepo.ExistsBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return &dto.ConfirmCheckoutResponse{Credited: false, TokenBalance: user.TokenBalance}, nil
	}

	sess, err := s.stripe.GetCheckoutSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, ErrSessionNotPaid
	}
	if sess.Metadata["uid"] != user.UID {
		return nil, ErrSessionOwnership
	}

	priceID := sessionFirstPriceID(sess)
	classification, ok := s.ClassifyPrice(priceID)
	if !ok || classification.Kind != PriceKindTokenPack {
		return nil, ErrNotTokenPack
	}

	grant := &model.TokenGrant{
		UserID:    user.ID,
		SessionID: sessionID,
		PriceID:   priceID,
		Tokens:    classification.Tokens,
	}
	if err := s.grantRepo.Create(grant); err != nil {
		// 并发确认撞了唯一索引，当成已入账处理
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &dto.ConfirmCheckoutResponse{Credited: false, TokenBalance: user.TokenBalance}, nil
		}
		return nil, err
	}

	if err := s.userRepo.CreditTokens(user.ID, classification.Tokens); err != nil {
		return nil, err
	}

	updated, err := s.userRepo.GetByID(user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.ConfirmCheckoutResponse{
		Credited:     true,
		Tokens:       classification.Tokens,
		TokenBalance: updated.TokenBalance,
	}, nil
}

func sessionFirstPriceID(sess *stripe.CheckoutSession) string {
	if sess.LineItems == nil || len(sess.LineItems.Data) == 0 {
		return ""
	}
	item := sess.LineItems.Data[0]
	if item.Price == nil {
		return ""
	}
	return item.Price.ID
}

// ensureStripeCustomer 确保用户有关联的 Stripe 客户，首次创建时把 uid 写进客户 metadata
func (s *BillingService) ensureStripeCustomer(user *model.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{"uid": user.UID},
	}
	if user.Email != nil {
		params.Email = stripe.String(*user.Email)
	}

	cust, err := s.stripe.NewCustomer(params)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.SetStripeCustomerID(user.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}

// Prices 返回前端展示用的价目表
func (s *BillingService) Prices() []*dto.PriceInfo {
	infos := make([]*dto.PriceInfo, 0, len(s.priceTable))
	for id, c := range s.priceTable {
		infos = append(infos, &dto.PriceInfo{
			Key:     c.Key,
			PriceID: id,
			Kind:    c.Kind,
			Plan:    c.Plan,
			Cycle:   c.Cycle,
			Tokens:  c.Tokens,
		})
	}
	return infos
}

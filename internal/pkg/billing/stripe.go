package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/nexusrbx/nexusrbx-server/config"
)

// Client Stripe API 封装。密钥在构造时注入，不使用 stripe 包级全局 Key，
// 便于测试时用假实现替换（见 service.StripeClient 接口）。
type Client struct {
	api *client.API
}

func NewClient(cfg *config.StripeConfig) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is empty")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &Client{api: api}, nil
}

// GetSubscription 按 ID 拉取订阅
func (c *Client) GetSubscription(id string) (*stripe.Subscription, error) {
	sub, err := c.api.Subscriptions.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription %s: %w", id, err)
	}
	return sub, nil
}

// GetCustomer 按 ID 拉取客户
func (c *Client) GetCustomer(id string) (*stripe.Customer, error) {
	cust, err := c.api.Customers.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %s: %w", id, err)
	}
	return cust, nil
}

// GetCheckoutSession 按 ID 拉取 Checkout Session，带行项目
func (c *Client) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("line_items")

	sess, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session %s: %w", id, err)
	}
	return sess, nil
}

// NewCustomer 创建客户
func (c *Client) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return cust, nil
}

// NewCheckoutSession 创建 Checkout Session
func (c *Client) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess, nil
}

// NewPortalSession 创建客户自助门户 Session
func (c *Client) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal session: %w", err)
	}
	return sess, nil
}

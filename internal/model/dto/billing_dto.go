package dto

// CheckoutRequest 创建 Checkout Session 请求。
// Price 取 prices 配置里的 key：pro_monthly / pro_yearly / team_monthly /
// team_yearly / tokens_100k / tokens_500k / tokens_1m
type CheckoutRequest struct {
	Price string `json:"price" binding:"required,max=50"`
}

// CheckoutResponse 返回 Stripe 托管页面 URL
type CheckoutResponse struct {
	URL string `json:"url"`
}

// ConfirmCheckoutRequest token 包入账请求
type ConfirmCheckoutRequest struct {
	SessionID string `json:"session_id" binding:"required,max=100"`
}

// ConfirmCheckoutResponse token 包入账结果
type ConfirmCheckoutResponse struct {
	Credited     bool  `json:"credited"`
	Tokens       int64 `json:"tokens,omitempty"`
	TokenBalance int64 `json:"token_balance"`
}

// PriceInfo 价目表条目
type PriceInfo struct {
	Key     string `json:"key"`
	PriceID string `json:"price_id"`
	Kind    string `json:"kind"` // subscription / token_pack
	Plan    string `json:"plan,omitempty"`
	Cycle   string `json:"cycle,omitempty"`
	Tokens  int64  `json:"tokens,omitempty"`
}

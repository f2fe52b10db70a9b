package payhub

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("payhub config invalid")
	ErrRequestFailed   = errors.New("payhub request failed")
	ErrResponseInvalid = errors.New("payhub response invalid")
	ErrRefundRejected  = errors.New("payhub refund rejected")
)

// Config 退款网关配置
type Config struct {
	BaseURL    string // 网关地址
	MerchantID string // 商户号
	SecretKey  string // 商户密钥（MD5 签名）
	Timeout    time.Duration
}

// RefundInput 退款请求输入
type RefundInput struct {
	RefundNo string // 退款单号（退货申请维度，幂等键）
	OrderNo  string // 原订单编号
	Amount   string // 退款金额（2 位小数字符串）
	Currency string // 币种
	Reason   string // 退款原因
}

// RefundResult 退款请求结果
type RefundResult struct {
	TradeNo string
	Raw     map[string]interface{}
}

// Client 退款网关客户端
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// ValidateConfig 校验网关配置完整性
func (c *Client) ValidateConfig() error {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.cfg.MerchantID) == "" {
		return fmt.Errorf("%w: merchant_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	return nil
}

// Refund 发起退款
// 网关以 refund_no 幂等去重，重复提交同一退款单号不会重复打款。
func (c *Client) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}
	if input.RefundNo == "" || input.OrderNo == "" || input.Amount == "" {
		return nil, fmt.Errorf("%w: refund_no/order_no/amount are required", ErrConfigInvalid)
	}

	params := map[string]string{
		"pid":          c.cfg.MerchantID,
		"refund_no":    input.RefundNo,
		"out_trade_no": input.OrderNo,
		"money":        input.Amount,
		"currency":     input.Currency,
		"reason":       input.Reason,
	}
	params["sign"] = signMD5(buildSignContent(params) + c.cfg.SecretKey)
	params["sign_type"] = "MD5"

	respBytes, err := c.postForm(ctx, buildEndpoint(c.cfg.BaseURL, "/api/refund"), params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
		TradeNo string `json:"trade_no"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if resp.Code != 1 {
		return nil, fmt.Errorf("%w: %s", ErrRefundRejected, resp.Msg)
	}
	return &RefundResult{
		TradeNo: strings.TrimSpace(resp.TradeNo),
		Raw:     raw,
	}, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func buildEndpoint(baseURL, apiPath string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	path := strings.TrimSpace(apiPath)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func buildSignContent(params map[string]string) string {
	var keys []string
	for k, v := range params {
		if v == "" {
			continue
		}
		if k == "sign" || k == "sign_type" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return strings.Join(pairs, "&")
}

func signMD5(content string) string {
	sum := md5.Sum([]byte(content))
	return strings.ToLower(hex.EncodeToString(sum[:]))
}

package qr

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bazar-next/internal/cache"
	"github.com/bazar-next/internal/logger"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrEmptyContent 二维码内容为空
var ErrEmptyContent = errors.New("qr content is empty")

// 默认缓存时长，略长于令牌有效期即可
const defaultCacheTTL = 48 * time.Hour

// Renderer 二维码 PNG 渲染器（按内容哈希走 Redis 缓存）
type Renderer struct {
	size     int
	cacheTTL time.Duration
}

// NewRenderer 创建渲染器
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = 256
	}
	return &Renderer{size: size, cacheTTL: defaultCacheTTL}
}

// PNG 渲染二维码 PNG
// 同一内容重复渲染直接命中缓存；缓存故障只记日志，不影响出图。
func (r *Renderer) PNG(ctx context.Context, content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	key := cacheKey(content, r.size)
	if data, ok, err := cache.GetBytes(ctx, key); err != nil {
		logger.Warnw("qr_cache_get_failed", "error", err)
	} else if ok {
		return data, nil
	}

	data, err := qrcode.Encode(content, qrcode.Medium, r.size)
	if err != nil {
		return nil, err
	}

	if err := cache.SetBytes(ctx, key, data, r.cacheTTL); err != nil {
		logger.Warnw("qr_cache_set_failed", "error", err)
	}
	return data, nil
}

func cacheKey(content string, size int) string {
	sum := sha1.Sum([]byte(content))
	return fmt.Sprintf("qr:%s:%d", hex.EncodeToString(sum[:]), size)
}

// middleware/middleware.go
// 按客户端 IP 的令牌桶限流：稳定速率 perSec，突发上限 burst。
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// cleanupInterval 清理间隔，闲置超过一个清理周期的 IP 记录会被移除
const cleanupInterval = 2 * time.Minute

// bucket 单个 IP 的令牌桶
type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter 按 IP 维护一组令牌桶
type Limiter struct {
	mu      sync.Mutex
	perSec  float64
	burst   float64
	buckets map[string]*bucket
	stop    chan struct{}
}

// NewLimiter 创建限流器并启动后台清理。
// perSec <= 0 表示不限流；burst 小于 perSec 时取 perSec
func NewLimiter(perSec, burst int) *Limiter {
	if burst < perSec {
		burst = perSec
	}
	l := &Limiter{
		perSec:  float64(perSec),
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow 判断该 IP 的本次请求是否放行
func (l *Limiter) Allow(ip string) bool {
	if l.perSec <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[ip] = b
	}

	// 按时间差补充令牌，封顶 burst
	b.tokens += now.Sub(b.last).Seconds() * l.perSec
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Middleware 把限流接到 HTTP 处理链上，超限返回 429
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop 停掉后台清理 goroutine
func (l *Limiter) Stop() {
	close(l.stop)
}

// cleanupLoop 定时清理长期不活跃的 IP，防止 map 无限膨胀
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for ip, b := range l.buckets {
				if now.Sub(b.last) > cleanupInterval {
					delete(l.buckets, ip)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// clientIP 提取客户端 IP，端口剥不掉就原样返回
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

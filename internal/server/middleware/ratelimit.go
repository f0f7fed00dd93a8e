package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JadeOpenClawAI/ai-chat-sub001/pkg/api"
)

const (
	// sweep idle clients once the table grows past this
	maxTrackedClients = 10000
	clientIdleTimeout = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages per-IP rate limiters for the OAuth endpoints.
type RateLimiter struct {
	clients map[string]*client
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter returns nil when rps is not positive; a nil limiter's
// middleware lets everything through.
func NewRateLimiter(rps float64, burst int, logger *zap.Logger) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(math.Ceil(rps))
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		rps:     rate.Limit(rps),
		burst:   burst,
		logger:  logger,
		now:     time.Now,
	}
}

// getLimiter returns the limiter for ip, creating it on first use.
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if cl, ok := rl.clients[ip]; ok {
		cl.lastSeen = now
		return cl.limiter
	}

	if len(rl.clients) >= maxTrackedClients {
		rl.sweepLocked(now)
	}

	cl := &client{limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: now}
	rl.clients[ip] = cl
	return cl.limiter
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for ip, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > clientIdleTimeout {
			delete(rl.clients, ip)
		}
	}
}

// Middleware returns the Gin middleware handler.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	retryAfter := strconv.Itoa(int(math.Ceil(1 / float64(rl.rps))))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getLimiter(ip)

		if !limiter.Allow() {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			problem := api.NewProblem(http.StatusTooManyRequests, "", "rate limit exceeded")
			problem.Instance = GetRequestID(c)
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
			return
		}

		c.Next()
	}
}

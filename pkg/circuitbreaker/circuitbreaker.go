package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State 表示熔断器状态
type State int

const (
	StateClosed   State = iota // 关闭：正常状态，允许请求通过
	StateOpen                  // 打开：熔断状态，直接拒绝请求
	StateHalfOpen              // 半开：尝试恢复，允许少量请求通过
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitBreakerOpen 熔断器打开时返回
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// Config 熔断器配置
type Config struct {
	// 失败阈值：连续失败多少次后打开熔断器
	FailureThreshold int `yaml:"failure_threshold"`
	// 成功阈值：半开状态下成功多少次后关闭熔断器
	SuccessThreshold int `yaml:"success_threshold"`
	// 超时时间：打开状态持续多久后进入半开状态
	Timeout time.Duration `yaml:"timeout"`
	// 半开状态下的最大并发请求数
	HalfOpenMaxRequests int `yaml:"half_open_max_requests"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = d.HalfOpenMaxRequests
	}
	return c
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	name   string
	config Config

	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	openedAt      time.Time

	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu sync.Mutex
}

// New 创建新的熔断器
func New(name string, config Config) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		config: config.withDefaults(),
		state:  StateClosed,
		now:    time.Now,
	}
}

// OnStateChange 注册状态变化回调（在锁外调用）
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) *CircuitBreaker {
	cb.onStateChange = fn
	return cb
}

// Name 熔断器名称
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute 执行函数，带熔断保护
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteContext(context.Background(), func(context.Context) error { return fn() })
}

// ExecuteContext 执行函数，带熔断保护；context 已取消时不计入失败
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn(ctx)

	cb.after(err, ctx.Err() != nil && err != nil && errors.Is(err, ctx.Err()))
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	from := cb.state
	cb.advance()
	to := cb.state

	var err error
	switch cb.state {
	case StateOpen:
		err = ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitBreakerOpen
		} else {
			cb.halfOpenCount++
		}
	}
	cb.mu.Unlock()

	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) after(err error, callerCanceled bool) {
	cb.mu.Lock()
	from := cb.state

	if cb.state == StateHalfOpen && cb.halfOpenCount > 0 {
		cb.halfOpenCount--
	}

	switch {
	case callerCanceled:
		// 调用方取消，不代表下游故障
	case err != nil:
		cb.onFailure()
	default:
		cb.onSuccess()
	}

	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
}

// advance 处理基于时间的状态转换，需持有锁
func (cb *CircuitBreaker) advance() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		cb.successCount = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	switch cb.state {
	case StateHalfOpen:
		// 半开状态下失败，立即打开
		cb.trip()
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCount = 0
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// GetState 获取当前状态（线程安全）
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance()
	return cb.state
}

// Reset 重置熔断器
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCount = 0
	cb.mu.Unlock()

	cb.notify(from, StateClosed)
}

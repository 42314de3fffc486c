package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards the SMTP relay: after FailureThreshold consecutive send errors the
// breaker opens and the cierre worker stops hammering the server until
// OpenTimeout has passed.
//
//   - Closed:    sends go through
//   - Open:      sends fail fast with ErrCircuitOpen
//   - Half-Open: sends go through; SuccessThreshold successes close it again,
//     one failure re-opens it

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Nombre           string
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// SMTPBreakerConfig is the breaker used for outgoing mail.
func SMTPBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Nombre:           "smtp",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      2 * time.Minute,
	}
}

type CircuitBreaker struct {
	mu     sync.Mutex
	cfg    CircuitBreakerConfig
	state  CBState
	fallos int
	exitos int
	// abiertoDesde is when the breaker last tripped
	abiertoDesde time.Time
	now          func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed, now: time.Now}
}

// State returns the current state, moving open → half-open once the timeout
// has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.revisarTimeout()
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.registrarFallo()
		return err
	}
	cb.registrarExito()
	return nil
}

// must hold cb.mu
func (cb *CircuitBreaker) revisarTimeout() {
	if cb.state == CBOpen && cb.now().Sub(cb.abiertoDesde) >= cb.cfg.OpenTimeout {
		cb.cambiar(CBHalfOpen)
	}
}

// must hold cb.mu
func (cb *CircuitBreaker) registrarFallo() {
	cb.fallos++
	switch cb.state {
	case CBClosed:
		if cb.fallos >= cb.cfg.FailureThreshold {
			cb.abrir()
		}
	case CBHalfOpen:
		cb.abrir()
	}
}

// must hold cb.mu
func (cb *CircuitBreaker) registrarExito() {
	switch cb.state {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.cambiar(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) abrir() {
	cb.abiertoDesde = cb.now()
	cb.cambiar(CBOpen)
}

func (cb *CircuitBreaker) cambiar(to CBState) {
	if cb.state == to {
		return
	}
	log.Warn().
		Str("breaker", cb.cfg.Nombre).
		Str("from", cb.state.String()).
		Str("to", to.String()).
		Msg("circuit breaker state change")
	cb.state = to
	cb.fallos = 0
	cb.exitos = 0
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TurnLimiter acota cuantos turnos puede abrir un usuario por ventana.
type TurnLimiter interface {
	Allow(ctx context.Context, userID string) bool
}

const redisTurnCountScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisTurnLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

// NewRedisTurnLimiter devuelve nil si no hay cliente; el handler lo trata
// como "sin limite".
func NewRedisTurnLimiter(client *redis.Client, window time.Duration, max int) TurnLimiter {
	if client == nil || max <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &redisTurnLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "chat:turns:",
	}
}

func (l *redisTurnLimiter) Allow(ctx context.Context, userID string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key := strings.TrimSpace(userID)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	count, err := l.client.Eval(ctx, redisTurnCountScript, []string{l.prefix + key}, l.window.Milliseconds()).Int()
	if err != nil {
		// si redis falla dejamos pasar el turno
		return true
	}
	return count <= l.max
}

package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
)

// Key suffixes under the configured prefix.
const (
	keyStatus     = "status"
	keySignal     = "signal"
	keyLog        = "log"
	keySteps      = "steps"
	keySpeed      = "speed"
	keyActiveLine = "active_line"
	keyOwner      = "owner"
	channelSignal = "signal:events"
)

// statusScript sets the status KEYS[1] to ARGV[2] if its current value
// (ARGV[3], idle, when unset) equals ARGV[1], or unconditionally when ARGV[1]
// is empty. Setting idle deletes the owner KEYS[2] and the log KEYS[3] and
// zeroes the steps KEYS[4] and active line KEYS[5].
var statusScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or ARGV[3]
if ARGV[1] ~= '' and cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2])
if ARGV[2] == ARGV[3] then
  redis.call('DEL', KEYS[2], KEYS[3])
  redis.call('SET', KEYS[4], 0)
  redis.call('SET', KEYS[5], 0)
end
return 1
`)

// claimScript sets the owner KEYS[2] to ARGV[1] if the status KEYS[1] is
// running or paused and no owner is set, then clears the run keys.
var claimScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or 'idle'
if cur ~= 'running' and cur ~= 'paused' then
  return 0
end
if redis.call('SETNX', KEYS[2], ARGV[1]) == 0 then
  return 0
end
redis.call('DEL', KEYS[3])
redis.call('SET', KEYS[4], 0)
redis.call('SET', KEYS[5], 0)
return 1
`)

// Redis implements [Cells] on top of a Redis server, so that the controller
// and the UI can live in different processes.
//
// Every cell is a key under the prefix. The resume signal is an INCR counter;
// each Fire also publishes the new value on a channel that waiters subscribe
// to before re-reading the counter.
type Redis struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedis wraps an existing client. The client is not closed by [Redis.Close].
func NewRedis(client *redis.Client, prefix string) (*Redis, error) {
	if err := apperrors.ValidateKeyPrefix(prefix); err != nil {
		return nil, err
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// DialRedis connects to the server at url (redis://host:port/db) and
// verifies the connection.
func DialRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	if err := apperrors.ValidateKeyPrefix(prefix); err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(apperrors.ErrCodeState, err, "connect to redis")
	}
	return &Redis{client: client, prefix: prefix, owned: true}, nil
}

func (r *Redis) key(name string) string {
	return r.prefix + ":" + name
}

// runKeys returns the keys read and written by the status and claim scripts.
func (r *Redis) runKeys() []string {
	return []string{r.key(keyStatus), r.key(keyOwner), r.key(keyLog), r.key(keySteps), r.key(keyActiveLine)}
}

func stateErr(err error, op string) error {
	return apperrors.Wrap(apperrors.ErrCodeState, err, "%s", op)
}

// Status returns the current execution state; unset reads as idle.
func (r *Redis) Status(ctx context.Context) (Status, error) {
	v, err := r.client.Get(ctx, r.key(keyStatus)).Result()
	if errors.Is(err, redis.Nil) {
		return StatusIdle, nil
	}
	if err != nil {
		return "", stateErr(err, "get status")
	}
	return ParseStatus(v)
}

// SetStatus stores s. Setting idle ends the current run.
func (r *Redis) SetStatus(ctx context.Context, s Status) error {
	if err := statusScript.Run(ctx, r.client, r.runKeys(), "", string(s), string(StatusIdle)).Err(); err != nil {
		return stateErr(err, "set status")
	}
	return nil
}

// CompareAndSetStatus swaps the status from from to to in a Lua script.
func (r *Redis) CompareAndSetStatus(ctx context.Context, from, to Status) (bool, error) {
	n, err := statusScript.Run(ctx, r.client, r.runKeys(),
		string(from), string(to), string(StatusIdle)).Int()
	if err != nil {
		return false, stateErr(err, "compare and set status")
	}
	return n == 1, nil
}

// ClaimRun takes the current run for owner with SETNX.
func (r *Redis) ClaimRun(ctx context.Context, owner string) (bool, error) {
	n, err := claimScript.Run(ctx, r.client, r.runKeys(), owner).Int()
	if err != nil {
		return false, stateErr(err, "claim run")
	}
	return n == 1, nil
}

// RunOwner returns the holder of the current run.
func (r *Redis) RunOwner(ctx context.Context) (string, error) {
	v, err := r.client.Get(ctx, r.key(keyOwner)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", stateErr(err, "get run owner")
	}
	return v, nil
}

// Signal returns the resume signal counter.
func (r *Redis) Signal(ctx context.Context) (uint64, error) {
	v, err := r.client.Get(ctx, r.key(keySignal)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, stateErr(err, "get signal")
	}
	return v, nil
}

// Fire increments the signal counter and publishes the new value.
func (r *Redis) Fire(ctx context.Context) error {
	v, err := r.client.Incr(ctx, r.key(keySignal)).Result()
	if err != nil {
		return stateErr(err, "increment signal")
	}
	if err := r.client.Publish(ctx, r.key(channelSignal), v).Err(); err != nil {
		return stateErr(err, "publish signal")
	}
	return nil
}

// WaitSignal blocks until the signal exceeds after.
func (r *Redis) WaitSignal(ctx context.Context, after uint64) (uint64, error) {
	sub := r.client.Subscribe(ctx, r.key(channelSignal))
	defer sub.Close()

	// The subscription must be active before the counter is read, or a
	// publish between the read and the subscribe would be missed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return after, ctx.Err()
		}
		return after, stateErr(err, "subscribe to signal")
	}
	events := sub.Channel()

	for {
		sig, err := r.Signal(ctx)
		if err != nil {
			return after, err
		}
		if sig > after {
			return sig, nil
		}

		select {
		case _, ok := <-events:
			if !ok {
				return after, stateErr(redis.ErrClosed, "signal subscription closed")
			}
		case <-ctx.Done():
			return after, ctx.Err()
		}
	}
}

// AppendLog appends a line without counting a step.
func (r *Redis) AppendLog(ctx context.Context, line string) error {
	if err := r.client.RPush(ctx, r.key(keyLog), line).Err(); err != nil {
		return stateErr(err, "append log")
	}
	return nil
}

// AppendStep appends a line and counts a step in one transaction.
func (r *Redis) AppendStep(ctx context.Context, line string) (int, error) {
	var steps *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.key(keyLog), line)
		steps = pipe.Incr(ctx, r.key(keySteps))
		return nil
	})
	if err != nil {
		return 0, stateErr(err, "append step")
	}
	return int(steps.Val()), nil
}

// Speed returns the playback speed multiplier.
func (r *Redis) Speed(ctx context.Context) (float64, error) {
	v, err := r.client.Get(ctx, r.key(keySpeed)).Float64()
	if errors.Is(err, redis.Nil) {
		return DefaultSpeed, nil
	}
	if err != nil {
		return 0, stateErr(err, "get speed")
	}
	return v, nil
}

// SetSpeed stores the playback speed multiplier.
func (r *Redis) SetSpeed(ctx context.Context, speed float64) error {
	if err := validateSpeed(speed); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(keySpeed), strconv.FormatFloat(speed, 'f', -1, 64), 0).Err(); err != nil {
		return stateErr(err, "set speed")
	}
	return nil
}

// SetActiveLine stores the active pseudo-code line.
func (r *Redis) SetActiveLine(ctx context.Context, line int) error {
	if err := r.client.Set(ctx, r.key(keyActiveLine), line, 0).Err(); err != nil {
		return stateErr(err, "set active line")
	}
	return nil
}

// Snapshot reads all cells in one pipeline.
func (r *Redis) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		status, signal, steps, speed, active *redis.StringCmd
		lines                                *redis.StringSliceCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		status = pipe.Get(ctx, r.key(keyStatus))
		signal = pipe.Get(ctx, r.key(keySignal))
		lines = pipe.LRange(ctx, r.key(keyLog), 0, -1)
		steps = pipe.Get(ctx, r.key(keySteps))
		speed = pipe.Get(ctx, r.key(keySpeed))
		active = pipe.Get(ctx, r.key(keyActiveLine))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, stateErr(err, "read snapshot")
	}

	snap := Snapshot{Status: StatusIdle, Speed: DefaultSpeed, Log: lines.Val()}
	if snap.Log == nil {
		snap.Log = []string{}
	}
	if v, err := status.Result(); err == nil {
		if snap.Status, err = ParseStatus(v); err != nil {
			return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
		}
	}
	if v, err := signal.Uint64(); err == nil {
		snap.Signal = v
	}
	if v, err := steps.Int(); err == nil {
		snap.StepCount = v
	}
	if v, err := speed.Float64(); err == nil {
		snap.Speed = v
	}
	if v, err := active.Int(); err == nil {
		snap.ActiveLine = v
	}
	return snap, nil
}

// Clear deletes every key under the prefix managed by this handle.
func (r *Redis) Clear(ctx context.Context) error {
	keys := []string{keyStatus, keySignal, keyLog, keySteps, keySpeed, keyActiveLine, keyOwner}
	for i, k := range keys {
		keys[i] = r.key(k)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return stateErr(err, "clear")
	}
	return nil
}

// Close closes the underlying client if it was opened by [DialRedis].
func (r *Redis) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}

// Ensure Redis implements Cells.
var _ Cells = (*Redis)(nil)

// Package redis persists transfer runs. Each run is a JSON record under
// its own key, membership in per-phase sets makes runs recoverable by
// phase after a restart, and a secondary index maps messageHash to the
// owning run for the long attestation wait.
package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gousdcbridge/config"
	"gousdcbridge/types"
)

type Store struct {
	pool   *redis.Pool
	logger *zap.Logger
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func New(logger *zap.Logger, host string, port int) *Store {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	return &Store{
		pool: &redis.Pool{
			MaxIdle: 5,
			Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
		},
		logger: logger.With(zap.String("component", "redis.Store")),
	}
}

// Ping verifies the connection; without persistence the service must not
// start.
func (s *Store) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err
}

func runKey(id string) string {
	return "transferrun:" + id
}

func messageHashKey(hash string) string {
	return "transfermsg:" + hash
}

// CreateRun stores a new run and files it under its phase set. Assigns an
// id when the record has none.
func (s *Store) CreateRun(run *types.TransferRun) error {
	if run == nil {
		return errors.New("null object to store")
	}
	if run.Phase == "" {
		return errors.New("transfer run cannot have empty phase")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	return s.writeRun(run, run.Phase)
}

// SaveRun persists the run after a phase transition, moving it between
// phase sets. The write is conditional on the stored phase still being
// prevPhase; a concurrent writer (cancellation racing an executor) makes
// it fail with ErrPhaseConflict so no confirmed transition is ever
// silently overwritten.
func (s *Store) SaveRun(run *types.TransferRun, prevPhase types.Phase) error {
	if run == nil {
		return errors.New("null object to store")
	}
	if run.Phase == "" {
		return errors.New("transfer run cannot have empty phase")
	}
	return s.writeRun(run, prevPhase)
}

func (s *Store) writeRun(run *types.TransferRun, prevPhase types.Phase) error {
	conn := s.pool.Get()
	defer conn.Close()

	run.TsUpdated = time.Now().Unix()

	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("cannot marshal transfer run to JSON: %s", err.Error())
	}

	// optimistic check-and-set: WATCH the record, verify the stored phase
	// is still the one the caller read, then write inside MULTI/EXEC so a
	// concurrent writer aborts this transaction instead of being clobbered
	if _, err := conn.Do("WATCH", runKey(run.ID)); err != nil {
		s.logger.Error("redis WATCH failed", zap.Error(err))
		return err
	}

	data, err := redis.Bytes(conn.Do("GET", runKey(run.ID)))
	switch {
	case errors.Is(err, redis.ErrNil):
		// brand new record, nothing to conflict with
	case err != nil:
		conn.Do("UNWATCH")
		s.logger.Error("redis GET failed", zap.Error(err))
		return err
	default:
		var stored types.TransferRun
		if err := json.Unmarshal(data, &stored); err != nil {
			conn.Do("UNWATCH")
			return err
		}
		if stored.Phase != prevPhase {
			conn.Do("UNWATCH")
			return fmt.Errorf("%w: run %s is %s, expected %s",
				types.ErrPhaseConflict, run.ID, stored.Phase, prevPhase)
		}
	}

	conn.Send("MULTI")
	if prevPhase != run.Phase {
		conn.Send("SREM", config.RedisPhaseSets[prevPhase], run.ID)
	}
	conn.Send("SET", runKey(run.ID), runJSON)
	conn.Send("SADD", config.RedisPhaseSets[run.Phase], run.ID)
	// once assigned, messageHash is the durable resumption key for the
	// run; index it
	if run.MessageHash != "" {
		conn.Send("SET", messageHashKey(run.MessageHash), run.ID)
	}

	reply, err := conn.Do("EXEC")
	if err != nil {
		s.logger.Error("redis EXEC failed", zap.Error(err))
		return err
	}
	if reply == nil {
		// WATCH tripped, somebody wrote the record first
		return fmt.Errorf("%w: run %s modified concurrently", types.ErrPhaseConflict, run.ID)
	}

	return nil
}

// GetRun fetches one run by id; (nil, nil) when absent.
func (s *Store) GetRun(id string) (*types.TransferRun, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", runKey(id)))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("redis GET failed", zap.Error(err))
		return nil, err
	}

	var run types.TransferRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRunByMessageHash resolves the secondary index written once the run
// reached awaiting_attestation.
func (s *Store) FindRunByMessageHash(messageHash string) (*types.TransferRun, error) {
	conn := s.pool.Get()
	defer conn.Close()

	id, err := redis.String(conn.Do("GET", messageHashKey(messageHash)))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("redis GET failed", zap.Error(err))
		return nil, err
	}

	return s.GetRun(id)
}

// FindRunsByPhase scans the phase set and loads every member. Used at
// startup to resume non-terminal runs and by the operator endpoints.
func (s *Store) FindRunsByPhase(phase types.Phase) ([]*types.TransferRun, error) {
	setKey, ok := config.RedisPhaseSets[phase]
	if !ok {
		return nil, errors.New("redis key not found for phase")
	}

	conn := s.pool.Get()
	defer conn.Close()

	runs := make([]*types.TransferRun, 0)

	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", setKey, cursor))
		if err != nil {
			return nil, err
		}

		var ids []string
		_, err = redis.Scan(values, &cursor, &ids)
		if err != nil {
			return nil, err
		}

		for _, id := range ids {
			run, err := s.GetRun(id)
			if err != nil {
				return nil, err
			}
			if run == nil {
				// stale set member, the record is the source of truth
				continue
			}
			if run.Phase == phase {
				runs = append(runs, run)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return runs, nil
}

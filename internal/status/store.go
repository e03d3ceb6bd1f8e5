// Package status persists job-progress and per-recording result records in
// Redis hashes with bounded time-to-live.
package status

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/tinkervoid/transcriber/internal/errors"
	"github.com/tinkervoid/transcriber/internal/logger"
)

const (
	jobKeyPrefix    = "transcribe:job:"
	resultKeyPrefix = "transcribe:result:"
)

// Store reads and writes status records. Every write is a partial-field
// upsert that refreshes the record's TTL.
type Store struct {
	rdb       *goredis.Client
	log       *logger.Logger
	jobTTL    time.Duration
	resultTTL time.Duration
}

// NewStore creates a Store with its own Redis connection pool.
func NewStore(cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("status config: %w", err)
	}

	dialTimeout, _ := time.ParseDuration(cfg.DialTimeout)
	readTimeout, _ := time.ParseDuration(cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.WriteTimeout)
	jobTTL, _ := time.ParseDuration(cfg.JobTTL)
	resultTTL, _ := time.ParseDuration(cfg.ResultTTL)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	log.Info("Status store client created", map[string]interface{}{
		"addr":      cfg.Addr,
		"db":        cfg.DB,
		"pool_size": cfg.PoolSize,
	})

	return &Store{
		rdb:       rdb,
		log:       log.WithComponent("status"),
		jobTTL:    jobTTL,
		resultTTL: resultTTL,
	}, nil
}

// NewStoreWithClient wraps an existing Redis client. Used by tests.
func NewStoreWithClient(rdb *goredis.Client, log *logger.Logger, jobTTL, resultTTL time.Duration) *Store {
	return &Store{
		rdb:       rdb,
		log:       log.WithComponent("status"),
		jobTTL:    jobTTL,
		resultTTL: resultTTL,
	}
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return apperrors.Storage("redis ping", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// SetJobStatus upserts the populated fields of st for jobID and refreshes the
// record's TTL. Fields left nil are not touched.
func (s *Store) SetJobStatus(ctx context.Context, jobID string, st JobStatus) error {
	fields := map[string]interface{}{"status": string(st.Status)}
	if st.Current != nil {
		fields["current"] = strconv.Itoa(*st.Current)
	}
	if st.Total != nil {
		fields["total"] = strconv.Itoa(*st.Total)
	}

	key := jobKeyPrefix + jobID
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return apperrors.Storage("set job status", err)
	}
	if err := s.rdb.Expire(ctx, key, s.jobTTL).Err(); err != nil {
		return apperrors.Storage("expire job status", err)
	}

	s.log.Debug("Updated job status", map[string]interface{}{
		logger.FieldJobID: jobID,
		"status":          string(st.Status),
	})
	return nil
}

// GetJobStatus returns the job record, or nil if the key is absent
// (never created, or expired).
func (s *Store) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	data, err := s.rdb.HGetAll(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, apperrors.Storage("get job status", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	st := &JobStatus{Status: JobState(data["status"])}
	if v, ok := data["current"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			st.Current = &n
		}
	}
	if v, ok := data["total"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			st.Total = &n
		}
	}
	return st, nil
}

// SetTranscriptionResult upserts the populated fields of the terminal record
// for recordingID and refreshes its TTL. A later write for the same recording
// overwrites matching fields (last-write-wins).
func (s *Store) SetTranscriptionResult(ctx context.Context, recordingID string, st TranscriptionStatus) error {
	fields := map[string]interface{}{"status": string(st.Status)}
	if st.Text != nil {
		fields["text"] = *st.Text
	}
	if st.Duration != nil {
		fields["duration"] = strconv.FormatFloat(*st.Duration, 'f', -1, 64)
	}
	if st.Error != nil {
		fields["error"] = *st.Error
	}

	key := resultKeyPrefix + recordingID
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return apperrors.Storage("set transcription result", err)
	}
	if err := s.rdb.Expire(ctx, key, s.resultTTL).Err(); err != nil {
		return apperrors.Storage("expire transcription result", err)
	}

	s.log.Debug("Updated transcription result", map[string]interface{}{
		logger.FieldRecordingID: recordingID,
		"status":                string(st.Status),
	})
	return nil
}

// GetTranscriptionResult returns the terminal record for a recording, or nil
// if absent.
func (s *Store) GetTranscriptionResult(ctx context.Context, recordingID string) (*TranscriptionStatus, error) {
	data, err := s.rdb.HGetAll(ctx, resultKeyPrefix+recordingID).Result()
	if err != nil {
		return nil, apperrors.Storage("get transcription result", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	st := &TranscriptionStatus{Status: ResultState(data["status"])}
	if v, ok := data["text"]; ok {
		st.Text = &v
	}
	if v, ok := data["duration"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			st.Duration = &f
		}
	}
	if v, ok := data["error"]; ok {
		st.Error = &v
	}
	return st, nil
}

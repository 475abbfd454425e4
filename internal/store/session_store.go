package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/minlab-go-api/internal/models"
)

const sessionKeyPrefix = "minlab:session:"

// recordSchema guards loads from durable storage: anything that does not look
// like a completed record is treated as absent rather than partially resumed.
const recordSchema = `{
  "type": "object",
  "required": ["sessionId", "name", "course", "completed", "score", "labData", "labelInfo"],
  "properties": {
    "sessionId": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "course": {"type": "string", "minLength": 1},
    "completed": {"type": "boolean"},
    "score": {"type": "integer", "minimum": 0, "maximum": 100},
    "labData": {
      "type": "object",
      "required": ["mass", "initialVolume", "finalVolume", "apparentDensity"],
      "properties": {
        "mass": {"type": "number", "exclusiveMinimum": 0},
        "initialVolume": {"type": "number", "minimum": 0},
        "finalVolume": {"type": "number"},
        "apparentDensity": {"type": "number"}
      }
    },
    "labelInfo": {
      "type": "object",
      "required": ["sampleId"],
      "properties": {
        "sampleId": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var compiledRecordSchema = jsonschema.MustCompileString("progress_record.json", recordSchema)

// SessionStore persists frozen progress records in redis. Saves are treated as
// best effort by callers; a failed save never alters completion state.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSessionStore builds the persistence adapter.
func NewSessionStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

// Save writes the record under its session key. Callers log and continue on
// failure.
func (s *SessionStore) Save(ctx context.Context, record models.ProgressRecord) error {
	if s.client == nil {
		return errors.New("session store is not configured")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal progress record: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(record.SessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store progress record: %w", err)
	}

	return nil
}

// Load returns the frozen record for the session, or false when nothing
// usable is stored. Malformed, schema-invalid, and incomplete records all
// count as absent: sessions are never resumed mid-sequence.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (models.ProgressRecord, bool) {
	if s.client == nil {
		return models.ProgressRecord{}, false
	}

	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to read stored record")
		}
		return models.ProgressRecord{}, false
	}

	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("stored record is not valid JSON")
		return models.ProgressRecord{}, false
	}

	if err := compiledRecordSchema.Validate(decoded); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("stored record failed schema validation")
		return models.ProgressRecord{}, false
	}

	var record models.ProgressRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return models.ProgressRecord{}, false
	}

	if !record.Completed {
		return models.ProgressRecord{}, false
	}

	return record, true
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

package outbox

import "example.com/runtrack/internal/events"

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeRunRecorded: {
		Schema: runRecordedSchema,
	},
	events.TypeChallengeJoined: {
		Schema: challengeJoinedSchema,
	},
}

const runRecordedSchema = `{
  "type": "object",
  "title": "RunRecorded",
  "properties": {
    "run_id": {"type": "integer"},
    "user_id": {"type": "string"},
    "distance_km": {"type": "number"},
    "duration_seconds": {"type": "number"},
    "start_time": {"type": "string", "format": "date-time"},
    "end_time": {"type": "string", "format": "date-time"},
    "recorded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["run_id", "user_id", "distance_km", "duration_seconds", "start_time", "end_time", "recorded_at"],
  "additionalProperties": false
}`

const challengeJoinedSchema = `{
  "type": "object",
  "title": "ChallengeJoined",
  "properties": {
    "challenge_id": {"type": "integer"},
    "participant_id": {"type": "integer"},
    "user_id": {"type": "string"},
    "joined_at": {"type": "string", "format": "date-time"},
    "personal_deadline": {"type": "string", "format": "date-time"}
  },
  "required": ["challenge_id", "participant_id", "user_id", "joined_at"],
  "additionalProperties": false
}`

package detect

import "github.com/santhosh-tekuri/jsonschema/v5"

// eventsSchema constrains what the model may return before any of it
// reaches the timeline.
const eventsSchema = `{
  "type": "object",
  "properties": {
    "events": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "start_time": {"type": "number", "minimum": 0},
          "end_time": {"type": "number", "minimum": 0},
          "description": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["type", "start_time", "end_time"]
      }
    }
  },
  "required": ["events"]
}`

var compiledEventsSchema = jsonschema.MustCompileString("events.json", eventsSchema)

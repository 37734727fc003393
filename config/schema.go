package config

// schema is the draft-07 JSON Schema every configuration document must
// satisfy before parsing. It bounds types and ranges; cross-field rules
// live in Config.Validate.
const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "mce configuration",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "sources": {
      "type": "array",
      "items": {
        "type": "string",
        "minLength": 1
      },
      "minItems": 1
    },
    "inference_config": {
      "type": "string",
      "minLength": 1
    },
    "model_engine_template": {
      "type": "string"
    },
    "sink": {
      "type": "string"
    },
    "output": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "width": {
          "type": "integer",
          "minimum": 16
        },
        "height": {
          "type": "integer",
          "minimum": 16
        }
      }
    },
    "platform": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "constrained": {
          "type": "boolean"
        },
        "int8": {
          "type": "boolean"
        }
      }
    },
    "telemetry": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "url": {
          "type": "string"
        },
        "subject": {
          "type": "string"
        }
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {
          "type": "boolean"
        },
        "port": {
          "type": "integer",
          "minimum": 0,
          "maximum": 65535
        },
        "path": {
          "type": "string"
        }
      }
    },
    "snapshot_dir": {
      "type": "string"
    },
    "log_level": {
      "type": "string",
      "enum": ["debug", "info", "warn", "error"]
    },
    "log_format": {
      "type": "string",
      "enum": ["text", "json"]
    }
  },
  "required": ["sources", "inference_config"]
}`

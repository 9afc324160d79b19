// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue an organizer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/handlers.TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments": {
            "get": {
                "tags": ["tournaments"],
                "summary": "List tournaments",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "pending, started or completed", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/models.Tournament"}}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Create a tournament",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/services.CreateTournamentInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": {"$ref": "#/definitions/models.Tournament"}}},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/tournaments/{tournamentID}": {
            "get": {
                "tags": ["tournaments"],
                "summary": "Get a tournament",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"$ref": "#/definitions/models.Tournament"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Delete a tournament with its participants and matches",
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Generate the bracket and start the tournament",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/result": {
            "get": {
                "description": "Completes the tournament once its final is finished and returns the winner with every match.",
                "tags": ["tournaments"],
                "summary": "Tournament result",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.TournamentSummary"}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/participants": {
            "get": {
                "tags": ["participants"],
                "summary": "List participants",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/models.Participant"}}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Adds every name or none of them. Only allowed before the tournament starts.",
                "tags": ["participants"],
                "summary": "Register participants",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/handlers.AddParticipantsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/models.Participant"}}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/tournaments/{tournamentID}/participants/{participantID}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "In a running tournament the participant is disqualified from its open match first.",
                "tags": ["participants"],
                "summary": "Remove a participant",
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"type": "string", "description": "Participant ID", "name": "participantID", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/matches": {
            "get": {
                "tags": ["matches"],
                "summary": "Bracket of a tournament",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/models.Match"}}}}
                }
            }
        },
        "/tournaments/{tournamentID}/matches/{matchID}": {
            "get": {
                "tags": ["matches"],
                "summary": "Get a match",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"type": "string", "description": "Match ID", "name": "matchID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"$ref": "#/definitions/models.Match"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "A finished match needs a strict score leader or an explicit winner_id. Returns every changed match.",
                "tags": ["matches"],
                "summary": "Record scores, optionally finishing the match",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"type": "string", "description": "Match ID", "name": "matchID", "in": "path", "required": true},
                    {"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/services.UpdateMatchInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/models.Match"}}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/tournaments/{tournamentID}/matches/{matchID}/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["matches"],
                "summary": "Start a match",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"type": "string", "description": "Match ID", "name": "matchID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"$ref": "#/definitions/models.Match"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/matches/{matchID}/disqualify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["matches"],
                "summary": "Disqualify a participant from a match",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"type": "string", "description": "Match ID", "name": "matchID", "in": "path", "required": true},
                    {"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/handlers.DisqualifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/models.Match"}}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/ws/tournaments/{tournamentID}": {
            "get": {
                "description": "Upgrades to a websocket that first receives the current bracket, then BRACKET_UPDATED, MATCH_UPDATED and TOURNAMENT_UPDATED events.",
                "tags": ["matches"],
                "summary": "Live bracket events",
                "parameters": [
                    {"type": "string", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handlers.AddParticipantsRequest": {
            "type": "object",
            "properties": {"names": {"type": "array", "items": {"type": "string"}}}
        },
        "handlers.DisqualifyRequest": {
            "type": "object",
            "properties": {"participant_id": {"type": "string"}}
        },
        "handlers.TokenRequest": {
            "type": "object",
            "properties": {"password": {"type": "string"}}
        },
        "models.Match": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "tournament_id": {"type": "string"},
                "position": {"type": "integer"},
                "label": {"type": "string"},
                "next_position": {"type": "integer"},
                "next_label": {"type": "string"},
                "first_participant_id": {"type": "string"},
                "second_participant_id": {"type": "string"},
                "first_score": {"type": "integer"},
                "second_score": {"type": "integer"},
                "winner_id": {"type": "string"},
                "is_bye": {"type": "boolean"},
                "status": {"type": "string", "enum": ["pending", "started", "completed"]},
                "start_time": {"type": "string"},
                "finish_time": {"type": "string"},
                "previous_labels": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.Participant": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "tournament_id": {"type": "string"},
                "name": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "models.Tournament": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "max_participants": {"type": "integer"},
                "status": {"type": "string", "enum": ["pending", "started", "completed"]},
                "match_count": {"type": "integer"},
                "participant_count": {"type": "integer"},
                "result_url": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "services.CreateTournamentInput": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "max_participants": {"type": "integer"}
            }
        },
        "services.TournamentSummary": {
            "type": "object",
            "properties": {
                "tournament": {"$ref": "#/definitions/models.Tournament"},
                "matches": {"type": "array", "items": {"$ref": "#/definitions/models.Match"}},
                "winner": {"$ref": "#/definitions/models.Participant"}
            }
        },
        "services.UpdateMatchInput": {
            "type": "object",
            "properties": {
                "first_score": {"type": "integer"},
                "second_score": {"type": "integer"},
                "finished": {"type": "boolean"},
                "winner_id": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tournament Bracket API",
	Description:      "Single-elimination tournament brackets with live updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Absensi API",
        "description": "Timetable, session attendance and attendance reporting",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Schedules", "description": "Weekly timetable and batch slot creation"},
        {"name": "Sessions", "description": "Today's sessions, attendance capture and completion"},
        {"name": "Reports", "description": "Attendance summaries, history grids and exports"}
    ],
    "paths": {
        "/schedules/batch": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Create timetable slots for a class and semester",
                "description": "Fully empty rows are skipped. Partially filled rows reject the batch. Written all-or-nothing.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchCreateSchedulesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Confirmed empty batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Incomplete rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "CLASS_SLOT_CONFLICT or TEACHER_SLOT_CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "EMPTY_BATCH_UNCONFIRMED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/weekly": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Weekly timetable of a class or teacher",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "integer"},
                    {"name": "teacherId", "in": "query", "type": "integer"},
                    {"name": "semesterId", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a timetable slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/today": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Today's sessions of a teacher",
                "parameters": [
                    {"name": "teacherId", "in": "query", "type": "integer", "description": "Administrators only"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{slotId}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Session detail with the previous note",
                "parameters": [
                    {"name": "slotId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No session found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{slotId}/attendance": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Read the capture of a session",
                "parameters": [
                    {"name": "slotId", "in": "path", "required": true, "type": "integer"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not captured yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Sessions"],
                "summary": "Capture attendance for a session",
                "description": "Replaces any earlier capture of the same slot and date.",
                "parameters": [
                    {"name": "slotId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CaptureAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{slotId}/complete": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Mark a captured session as completed",
                "parameters": [
                    {"name": "slotId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CompleteSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not captured yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/attendance/summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Cumulative attendance counts per student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/attendance/history": {
            "get": {
                "tags": ["Reports"],
                "summary": "Per-student, per-date attendance grid",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/attendance/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the attendance recap",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/attendance/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Students and statuses of one capture",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScheduleDraftRow": {
            "type": "object",
            "properties": {
                "hari_id": {"type": "integer"},
                "jam_id": {"type": "integer"},
                "mapel_id": {"type": "integer"},
                "guru_id": {"type": "integer"}
            }
        },
        "BatchCreateSchedulesRequest": {
            "type": "object",
            "required": ["kelas_id", "semester_id"],
            "properties": {
                "kelas_id": {"type": "integer"},
                "semester_id": {"type": "integer"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/ScheduleDraftRow"}},
                "confirm_empty": {"type": "boolean"}
            }
        },
        "CaptureAttendanceRequest": {
            "type": "object",
            "properties": {
                "tanggal": {"type": "string", "format": "date"},
                "marks": {
                    "type": "object",
                    "description": "Student id to H, S, I or A",
                    "additionalProperties": {"type": "string"}
                }
            }
        },
        "CompleteSessionRequest": {
            "type": "object",
            "properties": {
                "tanggal": {"type": "string", "format": "date"},
                "keterangan": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

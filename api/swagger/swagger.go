package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Examination Results API",
        "description": "Marks entry, results processing and publication for multi-tenant schools.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "GradeScales", "description": "Tenant grade bands"},
        {"name": "Marks", "description": "Raw subject mark entry"},
        {"name": "Results", "description": "Completeness, processing, listing and export"},
        {"name": "Publication", "description": "Publish, unpublish and clear"}
    ],
    "paths": {
        "/grade-scales": {
            "get": {
                "tags": ["GradeScales"],
                "summary": "List grade scale",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["GradeScales"],
                "summary": "Create grade band",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGradeScaleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grade-scales/default": {
            "post": {
                "tags": ["GradeScales"],
                "summary": "Install default grade scale",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grade-scales/{id}": {
            "delete": {
                "tags": ["GradeScales"],
                "summary": "Delete grade band",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/subjects/{subjectId}/marks": {
            "post": {
                "tags": ["Marks"],
                "summary": "Enter marks for an exam subject",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "subjectId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/subjects/{subjectId}/marks/{studentId}": {
            "put": {
                "tags": ["Marks"],
                "summary": "Enter marks for one student",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "subjectId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/classes/{classId}/completeness": {
            "get": {
                "tags": ["Results"],
                "summary": "Check mark entry completeness",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/classes/{classId}/process": {
            "post": {
                "tags": ["Results"],
                "summary": "Process class results",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Incomplete Marks", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Timed out waiting for a concurrent run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List examination results",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "required": false, "type": "string"},
                    {"name": "status", "in": "query", "required": false, "type": "string"},
                    {"name": "page", "in": "query", "required": false, "type": "integer"},
                    {"name": "pageSize", "in": "query", "required": false, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/students/{studentId}/result": {
            "get": {
                "tags": ["Results"],
                "summary": "Get a student's result with subject grades",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/classes/{classId}/results/export": {
            "get": {
                "tags": ["Results"],
                "summary": "Export class result sheet",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": false, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/publication": {
            "get": {
                "tags": ["Publication"],
                "summary": "Get publication state",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/publish": {
            "post": {
                "tags": ["Publication"],
                "summary": "Publish results",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/PublicationScope"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/unpublish": {
            "post": {
                "tags": ["Publication"],
                "summary": "Unpublish results",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/PublicationScope"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/examinations/{examId}/clear": {
            "post": {
                "tags": ["Publication"],
                "summary": "Clear results",
                "parameters": [
                    {"name": "X-Tenant-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClearRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateGradeScaleRequest": {
            "type": "object",
            "required": ["grade_name", "min_percentage", "max_percentage"],
            "properties": {
                "grade_name": {"type": "string"},
                "grade_point": {"type": "number"},
                "min_percentage": {"type": "number"},
                "max_percentage": {"type": "number"},
                "description": {"type": "string"},
                "is_passing": {"type": "boolean"}
            }
        },
        "MarkInput": {
            "type": "object",
            "required": ["student_id"],
            "properties": {
                "student_id": {"type": "string"},
                "theory_obtained": {"type": "number"},
                "practical_obtained": {"type": "number"},
                "internal_obtained": {"type": "number"},
                "is_absent": {"type": "boolean"},
                "remarks": {"type": "string"}
            }
        },
        "MarkBatchRequest": {
            "type": "object",
            "required": ["entries"],
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/MarkInput"}}
            }
        },
        "PublicationScope": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"}
            }
        },
        "ClearRequest": {
            "type": "object",
            "required": ["confirm"],
            "properties": {
                "class_id": {"type": "string"},
                "confirm": {"type": "string", "enum": ["yes"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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

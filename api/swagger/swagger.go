package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Seedling API",
        "description": "Child development center management API",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and session management"},
        {"name": "Users", "description": "Admin account management"},
        {"name": "Children", "description": "Enrollment and classroom groups"},
        {"name": "Skills", "description": "Skills catalogue and lessons"},
        {"name": "Assignments", "description": "Assignment catalogue"},
        {"name": "Submissions", "description": "Submission lifecycle and grading"},
        {"name": "Attendance", "description": "Daily attendance"},
        {"name": "Schedules", "description": "Weekly activity schedule"},
        {"name": "Announcements", "description": "Center announcements"},
        {"name": "Attachments", "description": "File uploads with signed downloads"},
        {"name": "Dashboard", "description": "Role dashboards and live snapshots"},
        {"name": "Reports", "description": "Asynchronous exports"},
        {"name": "Metrics", "description": "Observability"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        }
    },
    "definitions": {
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

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Attendance API",
        "description": "Student roster, daily attendance ledger and attendance reports",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Admin login"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Attendance", "description": "Daily attendance ledger and reports"},
        {"name": "Dashboard", "description": "Summary statistics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange admin credentials for an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/api/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List active students ordered by roll number",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Student"}}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Student"}},
                    "400": {"description": "Validation failed or roll number taken", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/api/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Student"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Student"}},
                    "400": {"description": "Validation failed or roll number taken", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Remove student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Message"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/api/attendance/mark": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance for a day",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttendanceBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Upserted records, or a message under the insert_only policy", "schema": {"type": "array", "items": {"$ref": "#/definitions/AttendanceRecord"}}},
                    "400": {"description": "Validation failed or day already marked", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/api/attendance/edit": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Edit statuses of an already marked day",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttendanceBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EditAttendanceResult"}},
                    "403": {"description": "Edit window closed", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Day not marked", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/api/attendance/daily": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Records of one day with their students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/DailyReportRow"}}}
                }
            }
        },
        "/api/attendance/monthly": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Per-student totals for a calendar month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "integer"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/MonthlyReportRow"}}}
                }
            }
        },
        "/api/attendance/monthly/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Download the monthly report",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "integer"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File attachment", "schema": {"type": "file"}}
                }
            }
        },
        "/api/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Headline attendance statistics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DashboardStats"}},
                    "500": {"description": "Failed to load stats", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expiresIn": {"type": "integer"}
            }
        },
        "StudentRequest": {
            "type": "object",
            "required": ["name", "rollNo"],
            "properties": {
                "name": {"type": "string"},
                "rollNo": {"type": "integer"}
            }
        },
        "Student": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "rollNo": {"type": "integer"},
                "isActive": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "AttendanceEntry": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "status": {"type": "string", "enum": ["present", "absent"]}
            }
        },
        "AttendanceBatchRequest": {
            "type": "object",
            "required": ["date", "records"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "records": {"type": "array", "items": {"$ref": "#/definitions/AttendanceEntry"}}
            }
        },
        "AttendanceRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "studentId": {"type": "string"},
                "date": {"type": "string", "format": "date", "example": "2024-03-01"},
                "status": {"type": "string", "enum": ["present", "absent"]},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "StudentRef": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "rollNo": {"description": "integer, or \"-\" for a deleted student"}
            }
        },
        "DailyReportRow": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "studentId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "status": {"type": "string"},
                "student": {"$ref": "#/definitions/StudentRef"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "MonthlyReportRow": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "rollNo": {"description": "integer, or \"-\" for a deleted student"},
                "name": {"type": "string"},
                "present": {"type": "integer"},
                "absent": {"type": "integer"},
                "total": {"type": "integer"},
                "percentage": {"type": "number"}
            }
        },
        "EditAttendanceResult": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "updated": {"type": "integer"}
            }
        },
        "DashboardStats": {
            "type": "object",
            "properties": {
                "totalStudents": {"type": "integer"},
                "todayPercentage": {"type": "integer"},
                "monthlyAvg": {"type": "integer"}
            }
        },
        "Message": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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

// internal/submission/schema.go
package submission

import "tulipai-funnel/internal/common/validation"

// payloadSchema guards what reaches the submissions table.
var payloadSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["name", "email", "companyName", "industries", "businessDomains", "challenges", "solutions", "websiteInsights"],
  "properties": {
    "name":                   {"type": "string", "minLength": 1},
    "email":                  {"type": "string", "pattern": "^\\S+@\\S+\\.\\S+$"},
    "phone":                  {"type": "string"},
    "role":                   {"type": "string"},
    "companyName":            {"type": "string", "minLength": 1},
    "website":                {"type": "string"},
    "teamSize":               {"type": "string"},
    "companySummary":         {"type": "string"},
    "websiteInsights":        {"type": "array", "items": {"type": "string"}},
    "industries":             {"$ref": "#/definitions/stringSet"},
    "departmentLevel":        {"type": "string"},
    "businessDomains":        {"$ref": "#/definitions/stringSet"},
    "otherBusinessDomain":    {"type": "string"},
    "challenges":             {"$ref": "#/definitions/stringSet"},
    "challengeClarification": {"type": "string", "maxLength": 300},
    "aiStage":                {"type": "string"},
    "aiUseCase":              {"type": "string", "maxLength": 500},
    "solutions":              {"$ref": "#/definitions/stringSet"},
    "timeline":               {"type": "string"},
    "budget":                 {"type": "string", "pattern": "^[0-9]*$"}
  },
  "definitions": {
    "stringSet": {"type": "array", "items": {"type": "string"}, "uniqueItems": true}
  }
}`)

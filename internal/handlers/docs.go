package handlers

import (
	"encoding/json"
	"net/http"
)

func uploadBody(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"files": map[string]interface{}{
			"type":  "array",
			"items": map[string]string{"type": "string", "format": "binary"},
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"multipart/form-data": map[string]interface{}{
				"schema": map[string]interface{}{
					"type":       "object",
					"required":   []string{"files"},
					"properties": props,
				},
			},
		},
	}
}

var formatParam = map[string]interface{}{
	"name":        "format",
	"in":          "query",
	"description": "Set to xlsx to download a workbook instead of JSON",
	"required":    false,
	"schema":      map[string]interface{}{"type": "string", "enum": []string{"json", "xlsx"}},
}

func responses(ok string, codes ...string) map[string]interface{} {
	out := map[string]interface{}{
		"200": map[string]interface{}{"description": ok},
	}
	descriptions := map[string]string{
		"400": "Invalid request or unreadable file",
		"404": "Report not found",
		"413": "Upload too large",
		"422": "Required columns missing",
		"503": "History store disabled or unavailable",
	}
	for _, c := range codes {
		out[c] = map[string]interface{}{
			"description": descriptions[c],
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]interface{}{"$ref": "#/components/schemas/Error"},
				},
			},
		}
	}
	return out
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Practice Analytics API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Practice Analytics API",
			"description": "Attendance and performance reports from coding-practice exports",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/reports/daily": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Daily attendance reports",
					"description": "One report per activity date with branch subtotals and an overall total. Stored history is merged in and fresh reports are saved once per session.",
					"parameters": []map[string]interface{}{
						formatParam,
						{
							"name":        "X-Session-ID",
							"in":          "header",
							"description": "Session whose saved reports are not written again",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"requestBody": uploadBody(nil),
					"responses":   responses("Reports, or an XLSX workbook", "400", "413", "422"),
				},
			},
			"/api/reports/cumulative": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Cumulative leaderboard",
					"description": "Per-student totals across every uploaded date",
					"parameters":  []map[string]interface{}{formatParam},
					"requestBody": uploadBody(nil),
					"responses":   responses("Student totals, or an XLSX workbook", "400", "413", "422"),
				},
			},
			"/api/performance": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Top performers",
					"description": "Ranks students by solved count, then active time, then submissions",
					"parameters":  []map[string]interface{}{formatParam},
					"requestBody": uploadBody(map[string]interface{}{
						"top_n":  map[string]interface{}{"type": "integer", "default": 50},
						"branch": map[string]interface{}{"type": "string", "default": "OVERALL"},
					}),
					"responses": responses("Ranked entries, or an XLSX workbook", "400", "413", "422"),
				},
			},
			"/api/history": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":   "List saved reports",
					"responses": responses("Saved report metadata, newest first", "503"),
				},
			},
			"/api/history/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Get a saved report",
					"parameters": []map[string]interface{}{
						{
							"name":     "id",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "integer"},
						},
						formatParam,
					},
					"responses": responses("Stored rows and the rebuilt report", "400", "404", "503"),
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API is running and whether the history store is reachable",
					"responses":   responses("API is healthy", "503"),
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":           map[string]string{"type": "string"},
						"message":         map[string]string{"type": "string"},
						"code":            map[string]string{"type": "integer"},
						"missing_columns": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}

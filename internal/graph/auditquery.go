package graph

import (
	"encoding/json"
	"net/url"
	"time"
)

// AuditLogQueryRequest is the creation body for a unified audit log search.
// Empty filter fields mean no restriction on that dimension and are omitted.
type AuditLogQueryRequest struct {
	DisplayName              string    `json:"displayName"`
	FilterStartDateTime      time.Time `json:"filterStartDateTime"`
	FilterEndDateTime        time.Time `json:"filterEndDateTime"`
	KeywordFilter            string    `json:"keywordFilter,omitempty"`
	ServiceFilter            string    `json:"serviceFilter,omitempty"`
	RecordTypeFilters        []string  `json:"recordTypeFilters,omitempty"`
	OperationFilters         []string  `json:"operationFilters,omitempty"`
	UserPrincipalNameFilters []string  `json:"userPrincipalNameFilters,omitempty"`
	IPAddressFilters         []string  `json:"ipAddressFilters,omitempty"`
	ObjectIDFilters          []string  `json:"objectIdFilters,omitempty"`
}

// AuditLogQuery is the server's view of a search job. The id is assigned at
// submission; status advances through notStarted/running/succeeded.
type AuditLogQuery struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// RecordPage is one page of audit records. Records stay opaque; their schema
// varies per workload and is preserved verbatim in the output.
type RecordPage struct {
	Records  []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// QueriesPath is the collection endpoint for audit log searches.
func QueriesPath() string {
	return "/security/auditLog/queries"
}

// QueryPath is the status endpoint for one search.
func QueryPath(id string) string {
	return QueriesPath() + "/" + url.PathEscape(id)
}

// RecordsPath is the first page of a completed search's records.
func RecordsPath(id string) string {
	return QueryPath(id) + "/records"
}

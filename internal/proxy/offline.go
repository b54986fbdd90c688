package proxy

import "encoding/json"

// OfflineWriteMessage acknowledges mutations while no credential is available
const OfflineWriteMessage = "Mock operation completed successfully"

// CustomerInfo is one side of a duplicate match
type CustomerInfo struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// DuplicateMatch is a pair of customer records suspected to be the same person
type DuplicateMatch struct {
	ID         string       `json:"id"`
	CustomerA  CustomerInfo `json:"customerA"`
	CustomerB  CustomerInfo `json:"customerB"`
	MatchScore int          `json:"matchScore"`
	Status     string       `json:"status"`
}

// ResolveResult is the body returned for POST /duplicates/{id}/resolve
type ResolveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OfflineMatches returns the fixed dataset served in offline mode.
// A fresh slice is returned on every call.
func OfflineMatches() []DuplicateMatch {
	return []DuplicateMatch{
		{
			ID: "a01XX000001234",
			CustomerA: CustomerInfo{
				ID:        "a00XX000001111",
				FirstName: "John",
				LastName:  "Smith",
				Email:     "john.smith@example.com",
				Phone:     "555-1234",
			},
			CustomerB: CustomerInfo{
				ID:        "a00XX000002222",
				FirstName: "Jon",
				LastName:  "Smith",
				Email:     "jon.smith@example.com",
				Phone:     "555-1234",
			},
			MatchScore: 70,
			Status:     "Pending Review",
		},
		{
			ID: "a01XX000005678",
			CustomerA: CustomerInfo{
				ID:        "a00XX000003333",
				FirstName: "Jane",
				LastName:  "Doe",
				Email:     "jane.doe@example.com",
				Phone:     "555-5678",
			},
			CustomerB: CustomerInfo{
				ID:        "a00XX000004444",
				FirstName: "Jane",
				LastName:  "D.",
				Email:     "j.doe@example.com",
				Phone:     "555-5678",
			},
			MatchScore: 50,
			Status:     "Pending Review",
		},
	}
}

var (
	offlineReadBody  = mustMarshal(OfflineMatches())
	offlineWriteBody = mustMarshal(ResolveResult{Success: true, Message: OfflineWriteMessage})
)

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// offlineResponse answers without touching the network: reads get the dataset,
// everything else a canned acknowledgment
func offlineResponse(method string) *Response {
	body := offlineWriteBody
	if method == "GET" || method == "HEAD" {
		body = offlineReadBody
	}

	out := make([]byte, len(body))
	copy(out, body)
	return &Response{StatusCode: 200, Body: out, Offline: true}
}

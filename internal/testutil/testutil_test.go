package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/sessions", map[string]string{"user_id": "u1"})
	if req.Method != http.MethodPost || req.URL.Path != "/sessions" {
		t.Errorf("request not built as expected: %s %s", req.Method, req.URL.Path)
	}

	empty := CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	if empty.Body == nil {
		t.Error("nil body should still produce a readable request body")
	}
}

func TestAssertJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Body.WriteString(`{"status":"ok","result":{"session_id":"abc"}}`)

	response := AssertJSONResponse(t, rr, "ok")
	result, ok := response["result"].(map[string]interface{})
	if !ok || result["session_id"] != "abc" {
		t.Errorf("result not decoded: %+v", response)
	}
}

func TestMustMarshalRoundTrip(t *testing.T) {
	type payload struct {
		Query string `json:"query"`
	}
	data := MustMarshalJSON(t, payload{Query: "printer offline"})

	var decoded payload
	MustUnmarshalJSON(t, data, &decoded)
	if decoded.Query != "printer offline" {
		t.Errorf("round trip failed: %+v", decoded)
	}
}

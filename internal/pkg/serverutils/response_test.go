package serverutils

import "testing"

func TestValidateRequest(t *testing.T) {
	type startRequest struct {
		ProposalId string `json:"proposalId" validate:"required,uuid"`
		Title      string `json:"title" validate:"required,min=3"`
	}

	tests := []struct {
		name       string
		req        startRequest
		wantFields []string
	}{
		{
			name: "valid request passes",
			req:  startRequest{ProposalId: "6f1e1f6a-9a34-4b31-8a56-0f2b3f7c9d10", Title: "Cold chain proposal"},
		},
		{
			name:       "missing fields reported",
			req:        startRequest{},
			wantFields: []string{"ProposalId", "Title"},
		},
		{
			name:       "short title reported",
			req:        startRequest{ProposalId: "6f1e1f6a-9a34-4b31-8a56-0f2b3f7c9d10", Title: "ab"},
			wantFields: []string{"Title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("ValidateRequest: %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("err = %T, want *ValidationError", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Fatalf("fields = %v, want %v", verr.Fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if _, present := verr.Fields[f]; !present {
					t.Errorf("field %s not reported: %v", f, verr.Fields)
				}
			}
		})
	}
}

func TestResponseHelpers(t *testing.T) {
	ok := SuccessResponse("created", map[string]string{"id": "1"})
	if !ok.Success || ok.Message != "created" || ok.Data == nil {
		t.Errorf("SuccessResponse = %+v", ok)
	}

	bad := ErrorResponse("validation failed", map[string]string{"Title": "required"})
	if bad.Success || bad.Errors == nil {
		t.Errorf("ErrorResponse = %+v", bad)
	}
}

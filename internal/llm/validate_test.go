package llm

import "testing"

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildOCRResponseSchema()

	cases := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"text":"glucose 95 mg/dl","confidence":0.9}`, false},
		{"confidence too high", `{"text":"x","confidence":1.5}`, true},
		{"missing field", `{"text":"x"}`, true},
		{"extra field", `{"text":"x","confidence":0.5,"notes":"hi"}`, true},
		{"not json", `not json at all`, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schema, []byte(c.data))
			if c.wantErr && err == nil {
				t.Error("expected error")
			}
			if !c.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidationResponseSchema(t *testing.T) {
	schema := BuildValidationResponseSchema()
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"all_tests_present":true}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"all_tests_present":"yes"}`)); err == nil {
		t.Error("expected type error for string verdict")
	}
}

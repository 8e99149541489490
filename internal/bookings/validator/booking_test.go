package validator

import (
	"testing"

	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

func testValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	}))
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		roomID  int64
		wantErr bool
	}{
		{name: "valid room id", roomID: 1, wantErr: false},
		{name: "large room id", roomID: 123456, wantErr: false},
		{name: "zero room id", roomID: 0, wantErr: true},
		{name: "negative room id", roomID: -3, wantErr: true},
	}

	v := testValidator()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(&model.BookingRequest{RoomID: tt.roomID})
			if tt.wantErr && err == nil {
				t.Errorf("expected validation failure for roomId=%d", tt.roomID)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error for roomId=%d: %v", tt.roomID, err)
			}
		})
	}
}

func TestValidateRequest_ErrorNamesField(t *testing.T) {
	v := testValidator()

	err := v.ValidateRequest(&model.BookingRequest{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 1 {
		t.Fatalf("expected a single field error, got %d", len(verrs))
	}
	if verrs[0].Field == "" {
		t.Error("field name missing from validation error")
	}
}

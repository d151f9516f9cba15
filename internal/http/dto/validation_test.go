package dto

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "appId", Message: "is required"}
	if err.Error() != "appId: is required" {
		t.Errorf("Error() = %q, want %q", err.Error(), "appId: is required")
	}
}

func TestToResponse(t *testing.T) {
	errs := []ValidationError{
		{Field: "appId", Message: "is required"},
		{Field: "deviceToken", Message: "must be 64-200 hex characters"},
	}
	resp := ToResponse(errs)
	expected := "appId: is required; deviceToken: must be 64-200 hex characters"
	if resp != expected {
		t.Errorf("ToResponse() = %q, want %q", resp, expected)
	}
}

func TestRegisterDeviceRequest_Normalize(t *testing.T) {
	req := RegisterDeviceRequest{
		AppID:       "  a1  ",
		DeviceToken: "  " + strings.Repeat("AB", 32) + "  ",
		AppBundleID: " com.example.app ",
	}
	req.Normalize()

	if req.AppID != "a1" {
		t.Errorf("Expected trimmed appId, got %q", req.AppID)
	}
	if req.DeviceToken != strings.Repeat("ab", 32) {
		t.Errorf("Expected lowercased token, got %q", req.DeviceToken)
	}
	if req.AppBundleID != "com.example.app" {
		t.Errorf("Expected trimmed bundle ID, got %q", req.AppBundleID)
	}
}

func TestRegisterDeviceRequest_Validate(t *testing.T) {
	valid := func() RegisterDeviceRequest {
		return RegisterDeviceRequest{
			AppID:       "a1",
			DeviceToken: strings.Repeat("a", 64),
			AppBundleID: "com.example.app",
		}
	}

	// Test baseline
	req := valid()
	if errs := req.Validate(); len(errs) != 0 {
		t.Errorf("Expected valid request, got: %v", ToResponse(errs))
	}

	// Test token length bounds
	req = valid()
	req.DeviceToken = strings.Repeat("f0", 100) // 200 chars, upper bound
	if errs := req.Validate(); len(errs) != 0 {
		t.Errorf("Expected 200-char token to pass, got: %v", ToResponse(errs))
	}

	req = valid()
	req.DeviceToken = strings.Repeat("a", 63)
	if errs := req.Validate(); len(errs) == 0 {
		t.Error("Expected 63-char token to fail")
	}

	req = valid()
	req.DeviceToken = strings.Repeat("a", 201)
	if errs := req.Validate(); len(errs) == 0 {
		t.Error("Expected 201-char token to fail")
	}

	// Test non-hex token
	req = valid()
	req.DeviceToken = strings.Repeat("g", 64)
	if errs := req.Validate(); len(errs) == 0 {
		t.Error("Expected non-hex token to fail")
	}

	// Test missing fields
	req = valid()
	req.AppID = ""
	if errs := req.Validate(); len(errs) == 0 {
		t.Error("Expected missing appId to fail")
	}

	req = valid()
	req.AppBundleID = ""
	if errs := req.Validate(); len(errs) == 0 {
		t.Error("Expected missing appBundleId to fail")
	}

	// Wildcard app scope is a legal registration
	req = valid()
	req.AppID = "*"
	if errs := req.Validate(); len(errs) != 0 {
		t.Errorf("Expected wildcard appId to pass, got: %v", ToResponse(errs))
	}
}

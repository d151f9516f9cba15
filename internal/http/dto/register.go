// Package dto holds request/response shapes for the relay's HTTP API.
package dto

import (
	"regexp"
	"strings"
)

// deviceTokenRegex matches APNs device tokens: 64 hex chars today, with
// headroom up to 200 should Apple ever lengthen them.
var deviceTokenRegex = regexp.MustCompile(`^[a-f0-9]{64,200}$`)

// RegisterDeviceRequest is the body of POST /register.
type RegisterDeviceRequest struct {
	AppID       string `json:"appId"`
	DeviceToken string `json:"deviceToken"`
	AppBundleID string `json:"appBundleId"`
}

// Normalize trims fields and lowercases the device token in place.
func (r *RegisterDeviceRequest) Normalize() {
	r.AppID = strings.TrimSpace(r.AppID)
	r.DeviceToken = strings.ToLower(strings.TrimSpace(r.DeviceToken))
	r.AppBundleID = strings.TrimSpace(r.AppBundleID)
}

// Validate checks the normalized request.
func (r *RegisterDeviceRequest) Validate() []ValidationError {
	var errs []ValidationError
	if r.AppID == "" {
		errs = append(errs, ValidationError{Field: "appId", Message: "is required"})
	}
	if r.AppBundleID == "" {
		errs = append(errs, ValidationError{Field: "appBundleId", Message: "is required"})
	}
	if !deviceTokenRegex.MatchString(r.DeviceToken) {
		errs = append(errs, ValidationError{Field: "deviceToken", Message: "must be 64-200 hex characters"})
	}
	return errs
}

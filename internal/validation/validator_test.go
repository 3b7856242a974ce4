// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package validation

import (
	"strings"
	"testing"
)

type movieRequest struct {
	Title     string  `validate:"required,max=255"`
	Situation string  `validate:"omitempty,situation"`
	Rating    float64 `validate:"gte=0,lte=100"`
	Votes     int64   `validate:"gte=1"`
}

type userRequest struct {
	Email string `validate:"required,email"`
	Role  string `validate:"omitempty,userrole"`
}

func TestValidateStructPasses(t *testing.T) {
	req := movieRequest{Title: "Stalker", Situation: "released", Rating: 92.5, Votes: 10}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid struct, got: %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	tests := []struct {
		name      string
		req       interface{}
		wantField string
		wantTag   string
	}{
		{"missing title", &movieRequest{Votes: 1}, "Title", "required"},
		{"bad situation", &movieRequest{Title: "x", Situation: "cancelled", Votes: 1}, "Situation", "situation"},
		{"rating above 100", &movieRequest{Title: "x", Rating: 150, Votes: 1}, "Rating", "lte"},
		{"rating below 0", &movieRequest{Title: "x", Rating: -1, Votes: 1}, "Rating", "gte"},
		{"zero votes", &movieRequest{Title: "x"}, "Votes", "gte"},
		{"bad email", &userRequest{Email: "not-an-email"}, "Email", "email"},
		{"bad role", &userRequest{Email: "a@b.c", Role: "superadmin"}, "Role", "userrole"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			found := false
			for _, fe := range err.Errors() {
				if fe.Field() == tt.wantField && fe.Tag() == tt.wantTag {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v missing %s/%s", err.Errors(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	err := ValidateStruct(&movieRequest{Votes: 1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Title is required") {
		t.Errorf("message = %q, want mention of Title", apiErr.Message)
	}
	if apiErr.Details["field"] != "Title" {
		t.Errorf("details field = %v, want Title", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	err := ValidateStruct(&movieRequest{Rating: 200})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) < 2 {
		t.Fatalf("expected multiple errors, got %d", len(err.Errors()))
	}
	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields list in details for multiple errors")
	}
}

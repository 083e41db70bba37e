package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type titlePatch struct {
	Category *string `json:"category,omitempty" validate:"omitempty,slug_or_empty"`
	Slug     string  `json:"slug" validate:"required,slug"`
}

func TestValidateStruct_SlugOrEmpty(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name     string
		category *string
		wantErr  bool
	}{
		{name: "absent", category: nil},
		{name: "empty clears", category: ptr("")},
		{name: "slug", category: ptr("sci-fi_2")},
		{name: "not a slug", category: ptr("sci fi"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(titlePatch{Category: tt.category, Slug: "films"})
			if tt.wantErr {
				assert.Equal(t, map[string]string{
					"category": "Only letters, digits, hyphens and underscores are allowed",
				}, errs)
				return
			}
			assert.Empty(t, errs)
		})
	}
}

func TestValidateStruct_SlugRejectsEmpty(t *testing.T) {
	errs := ValidateStruct(titlePatch{Slug: ""})
	assert.Equal(t, "This field is required", errs["slug"])
}

func TestFormatValidationErrors_Sorted(t *testing.T) {
	got := FormatValidationErrors(map[string]string{"year": "bad", "name": "missing"})
	assert.Equal(t, "name: missing; year: bad", got)
}

package delivery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobmate/harvester-service/internal/delivery"
	"jobmate/harvester-service/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestContainsRedFlag(t *testing.T) {
	l := model.Listing{
		ID:          "job-1",
		Title:       ptr("Build a Landing Page"),
		ClientName:  ptr("Cheap Hosting LLC"),
		Description: ptr("Unpaid trial task first."),
	}

	tests := []struct {
		name  string
		flags []string
		want  bool
	}{
		{"no flags", nil, false},
		{"title match case-insensitive", []string{"landing"}, true},
		{"client match", []string{"cheap hosting"}, true},
		{"description match", []string{"UNPAID"}, true},
		{"no match", []string{"crypto", "casino"}, false},
		{"blank flag ignored", []string{"  ", ""}, false},
		{"flag trimmed", []string{"  trial  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, delivery.ContainsRedFlag(l, tt.flags))
		})
	}
}

func TestContainsRedFlag_NilFields(t *testing.T) {
	assert.False(t, delivery.ContainsRedFlag(model.Listing{ID: "x"}, []string{"anything"}))
}

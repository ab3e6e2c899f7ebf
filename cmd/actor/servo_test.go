package main

import (
	"testing"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

func TestResolveServo(t *testing.T) {
	servos := entities.ServoMap{EyeRight: 3, EyeLeft: 4, Mouth: 5}

	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{name: "mouth", want: 5},
		{name: "eye_left", want: 4},
		{name: "12", want: 12},
		{name: "tail", wantErr: true},
		{name: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveServo(servos, tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveServo(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("resolveServo(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/models"
	"carebridge/internal/workflow"
)

func TestHospitalValidation(t *testing.T) {
	// validation runs before any repository access
	svc := NewHospitalService(nil)

	cases := []struct {
		name     string
		hospital models.Hospital
		wantErr  string
	}{
		{
			name:     "name required",
			hospital: models.Hospital{Rooms: []models.RoomOption{{Name: "Deluxe", Rent: "4500"}}},
			wantErr:  "hospital name is required",
		},
		{
			name: "room name required",
			hospital: models.Hospital{
				Name:  "City Care",
				Rooms: []models.RoomOption{{Rent: "4500"}},
			},
			wantErr: "room name is required",
		},
		{
			name: "room rent required",
			hospital: models.Hospital{
				Name:  "City Care",
				Rooms: []models.RoomOption{{Name: "Deluxe"}},
			},
			wantErr: "room rent is required",
		},
		{
			name: "blank rent rejected",
			hospital: models.Hospital{
				Name:  "City Care",
				Rooms: []models.RoomOption{{Name: "Deluxe", Rent: "   "}},
			},
			wantErr: "room rent is required",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(&tc.hospital)
			require.Error(t, err)
			assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

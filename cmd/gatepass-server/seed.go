package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
)

func createInitialData(ctx context.Context, st *store.Store) error {
	admins, err := st.CountIdentities(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}

	if admins == 0 {
		admin := models.Identity{
			RegistrationNumber: getEnv("ADMIN_REGISTRATION_NUMBER", "ADMIN001"),
			Name:               getEnv("ADMIN_NAME", "System Administrator"),
			Email:              getEnv("ADMIN_EMAIL", "admin@campus.local"),
			Role:               models.RoleAdmin,
			PasswordHash:       getEnv("ADMIN_PASSWORD", "admin123"),
			Active:             true,
		}
		if err := st.CreateIdentity(ctx, &admin); err != nil {
			return err
		}
		log.Printf("Default admin created (registration number: %s)", admin.RegistrationNumber)
	}

	students, err := st.CountIdentities(ctx, models.RoleStudent)
	if err != nil {
		return err
	}
	if students > 0 {
		return nil
	}

	demo := []struct {
		identity models.Identity
		devices  []models.Device
	}{
		{
			identity: models.Identity{
				RegistrationNumber: "CS/2021/001",
				Name:               "Alice Wanjiru",
				Email:              "alice@student.campus.local",
				Role:               models.RoleStudent,
				PasswordHash:       "student123",
				Active:             true,
			},
			devices: []models.Device{
				{RFIDTag: "RFID001A", DeviceName: "Dell Inspiron 15", DeviceType: "Laptop"},
			},
		},
		{
			identity: models.Identity{
				RegistrationNumber: "CS/2021/002",
				Name:               "Brian Otieno",
				Email:              "brian@student.campus.local",
				Role:               models.RoleStudent,
				PasswordHash:       "student123",
				Active:             true,
			},
			devices: []models.Device{
				{RFIDTag: "RFID002B", DeviceName: "HP Pavilion", DeviceType: "Laptop"},
				{RFIDTag: "RFID002C", DeviceName: "iPad Air", DeviceType: "Tablet"},
			},
		},
		{
			identity: models.Identity{
				RegistrationNumber: "CS/2020/017",
				Name:               "Inactive Student",
				Email:              "inactive@student.campus.local",
				Role:               models.RoleStudent,
				PasswordHash:       "student123",
				Active:             false,
			},
		},
	}

	for _, d := range demo {
		identity := d.identity
		if err := st.CreateIdentity(ctx, &identity); err != nil {
			return err
		}
		// active defaults to true on insert
		if !d.identity.Active {
			if _, err := st.SetIdentityActive(ctx, identity.ID, false); err != nil {
				return err
			}
		}
		for _, device := range d.devices {
			device.IdentityID = identity.ID
			if err := st.CreateDevice(ctx, &device); err != nil && !errors.Is(err, store.ErrConflict) {
				return err
			}
		}
	}
	log.Println("Demo students and devices created")

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

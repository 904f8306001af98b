package directory

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

var (
	seedSpecialties = []string{
		"Family Medicine", "Internal Medicine", "Cardiology", "Dermatology", "Endocrinology",
		"Gastroenterology", "Neurology", "Obstetrics & Gynecology", "Orthopedics", "Pediatrics",
		"Psychiatry", "Pulmonology",
	}
	seedLanguages = []string{"English", "Spanish", "Mandarin", "Cantonese", "Russian", "Hindi", "French", "Arabic", "Korean"}
	seedReasons   = []string{
		"Annual physical", "Follow-up visit", "New patient consultation", "Lab results review",
		"Medication refill", "Chronic condition management", "Sick visit",
	}
	seedTimes = []string{"09:00", "09:30", "10:00", "10:30", "11:00", "13:00", "13:30", "14:00", "15:00", "16:00"}
)

// GenerateDoctors builds n synthetic doctors with slots over the days
// following start. The same seed yields the same directory.
func GenerateDoctors(n int, seed uint64, start time.Time) []*Doctor {
	f := gofakeit.New(seed)
	doctors := make([]*Doctor, 0, n)
	for i := 0; i < n; i++ {
		specialty := f.RandomString(seedSpecialties)
		name := fmt.Sprintf("Dr. %s %s", f.FirstName(), f.LastName())
		address := f.Street()
		city := f.City()
		state := f.StateAbr()
		zip := f.Zip()
		phone := f.Phone()
		bio := fmt.Sprintf("%s is a board-certified %s specialist practicing in %s.", name, specialty, city)

		langs := []string{"English"}
		for _, l := range seedLanguages[1:] {
			if f.Number(1, 100) <= 20 {
				langs = append(langs, l)
			}
		}

		reasons := []string{}
		for _, r := range seedReasons {
			if f.Bool() {
				reasons = append(reasons, r)
			}
		}

		var slots []Slot
		for day := 1; day <= 7; day++ {
			date := start.AddDate(0, 0, day).Format("2006-01-02")
			for _, t := range seedTimes {
				if f.Number(1, 100) <= 30 {
					slots = append(slots, Slot{Date: date, Time: t, Available: f.Number(1, 100) <= 80})
				}
			}
		}

		doctors = append(doctors, &Doctor{
			ID:                fmt.Sprintf("doc_%04d", i+1),
			Name:              name,
			Specialty:         specialty,
			Address:           &address,
			City:              &city,
			State:             &state,
			ZipCode:           &zip,
			Phone:             &phone,
			Rating:            float64(int(f.Float64Range(3.5, 5.0)*10)) / 10,
			ReviewCount:       f.Number(3, 450),
			YearsExperience:   f.Number(2, 35),
			Bio:               &bio,
			AcceptsTelehealth: f.Bool(),
			InNetwork:         f.Number(1, 100) <= 70,
			Languages:         langs,
			Slots:             slots,
			Reasons:           reasons,
		})
	}
	return doctors
}

package service

import "github.com/makerlabExp/pickupConnect/internal/models"

// Built-in sample roster backing demo mode and the admin seed action.
func sampleStudents() []models.Student {
	return []models.Student{
		{
			ID:         "s1",
			Name:       "Leo",
			AccessCode: "1234",
			ParentID:   "p1",
			AvatarURL:  "https://api.dicebear.com/7.x/avataaars/svg?seed=Leo",
			Classroom:  "Salle 1",
		},
		{
			ID:         "s2",
			Name:       "Mia",
			AccessCode: "5678",
			ParentID:   "p2",
			AvatarURL:  "https://api.dicebear.com/7.x/avataaars/svg?seed=Mia",
			Classroom:  "Salle DIY",
		},
	}
}

func sampleParents() []models.Parent {
	return []models.Parent{
		{
			ID:        "p1",
			Name:      "Sarah",
			StudentID: "s1",
			AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=Sarah",
		},
		{
			ID:        "p2",
			Name:      "Mike",
			StudentID: "s2",
			AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=Mike",
		},
	}
}

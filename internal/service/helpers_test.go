package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/store"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func testBroker() *feed.Broker {
	return feed.NewBroker(nil, "", nil, zerolog.Nop())
}

// seededStore returns a store preloaded with the sample roster.
func seededStore() *store.Store {
	s := store.New()
	s.LoadStudents(sampleStudents())
	s.LoadParents(sampleParents())
	return s
}

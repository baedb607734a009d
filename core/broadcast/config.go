package broadcast

import "time"

// Config holds broadcaster tuning loaded from the environment via
// config.Load. Zero values fall back to the package defaults.
type Config struct {
	// RegistrationBuffer is the capacity of the registration channel.
	RegistrationBuffer int `env:"BROADCAST_REGISTRATION_BUFFER" envDefault:"64"`
	// IngestBuffer is the capacity of the update ingestion channel.
	IngestBuffer int `env:"BROADCAST_INGEST_BUFFER" envDefault:"1024"`
	// SubscriberBuffer is the capacity of each subscriber's delivery
	// channel. A subscriber whose buffer is full when an update arrives is
	// evicted as lagged.
	SubscriberBuffer int `env:"BROADCAST_SUBSCRIBER_BUFFER" envDefault:"256"`
	// ShutdownTimeout bounds how long Stop waits for the coordinator loop
	// to drain before cancelling it.
	ShutdownTimeout time.Duration `env:"BROADCAST_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Package handoff relays query coordinates to the robot-control process.
// Delivery is fire-and-forget: nothing here waits for the consumer.
package handoff

import (
	"errors"

	"robovision/internal/models"
)

// Publisher hands the coordinates of a finished query to the robot side.
type Publisher interface {
	Publish(result *models.QueryResult) error
	Close() error
}

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(result *models.QueryResult) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package booking computes open slots and records bookings.
package booking

import (
	"context"
	"fmt"

	"clinic-booking-api/internal/model"
)

type Catalog interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	ServiceNames(ctx context.Context) ([]string, error)
}

type DayBookings interface {
	BookingsByDate(ctx context.Context, date string) ([]model.Booking, error)
}

// Availability subtracts a day's bookings from each service's template slots.
// It never writes to the catalog.
type Availability struct {
	catalog  Catalog
	bookings DayBookings
}

func NewAvailability(c Catalog, b DayBookings) *Availability {
	return &Availability{catalog: c, bookings: b}
}

func (a *Availability) ServiceNames(ctx context.Context) ([]string, error) {
	return a.catalog.ServiceNames(ctx)
}

// ListAvailable returns every service, in catalog order, with only the
// slots nobody has booked on date. A fully booked service has an empty,
// non-nil slot list.
func (a *Availability) ListAvailable(ctx context.Context, date string) ([]model.Service, error) {
	services, err := a.catalog.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	booked, err := a.bookings.BookingsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings for %s: %w", date, err)
	}
	return Subtract(services, booked), nil
}

// Subtract is the pure part of ListAvailable. Bookings are assumed to be
// for a single date already. The input services are not modified.
func Subtract(services []model.Service, booked []model.Booking) []model.Service {
	taken := make(map[string]map[string]struct{}, len(services))
	for _, b := range booked {
		set, ok := taken[b.Treatment]
		if !ok {
			set = make(map[string]struct{})
			taken[b.Treatment] = set
		}
		set[b.Slot] = struct{}{}
	}

	out := make([]model.Service, 0, len(services))
	for _, svc := range services {
		open := make([]string, 0, len(svc.Slots))
		for _, slot := range svc.Slots {
			if _, gone := taken[svc.Name][slot]; !gone {
				open = append(open, slot)
			}
		}
		out = append(out, model.Service{Name: svc.Name, Slots: open})
	}
	return out
}

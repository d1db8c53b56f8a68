package application

import (
	"context"
	"time"
)

var serviceRecords = collection[Service]{
	name:   "service",
	get:    func(d *StoredData) []Service { return d.Services },
	set:    func(d *StoredData, v []Service) { d.Services = v },
	id:     func(s *Service) *string { return &s.ID },
	stamps: func(s *Service) (*time.Time, *time.Time) { return &s.CreatedAt, &s.UpdatedAt },
}

var purchaseRecords = collection[PurchasedService]{
	name:   "purchased_service",
	get:    func(d *StoredData) []PurchasedService { return d.PurchasedServices },
	set:    func(d *StoredData, v []PurchasedService) { d.PurchasedServices = v },
	id:     func(p *PurchasedService) *string { return &p.ID },
	stamps: func(p *PurchasedService) (*time.Time, *time.Time) { return &p.CreatedAt, &p.UpdatedAt },
}

// AddService appends a catalog entry.
func (s *Store) AddService(ctx context.Context, service Service) Service {
	created, _ := createRecord(s, ctx, serviceRecords, service, nil)
	return created
}

// UpdateService merges patch into the service with id.
func (s *Store) UpdateService(ctx context.Context, id string, patch func(*Service)) (Service, bool) {
	return updateRecord(s, ctx, serviceRecords, id, patch, nil)
}

// DeleteService removes the service with id.
func (s *Store) DeleteService(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, serviceRecords, id)
}

// Service returns the service with id.
func (s *Store) Service(id string) (Service, bool) {
	return findRecord(s, serviceRecords, id)
}

// Services returns the catalog in insertion order.
func (s *Store) Services() []Service {
	return listRecords(s, serviceRecords)
}

// AddPurchasedService records a purchase. An empty status means active and a
// zero price is taken from the catalog entry when it exists.
func (s *Store) AddPurchasedService(ctx context.Context, purchase PurchasedService) PurchasedService {
	created, _ := createRecord(s, ctx, purchaseRecords, purchase, func(d *StoredData, p *PurchasedService) error {
		if p.Status == "" {
			p.Status = PurchaseActive
		}
		if p.Price == 0 {
			if i := serviceRecords.index(d.Services, p.ServiceID); i >= 0 {
				p.Price = d.Services[i].Price
			}
		}
		return nil
	})
	return created
}

// UpdatePurchasedService merges patch into the purchase with id.
func (s *Store) UpdatePurchasedService(ctx context.Context, id string, patch func(*PurchasedService)) (PurchasedService, bool) {
	return updateRecord(s, ctx, purchaseRecords, id, patch, nil)
}

// DeletePurchasedService removes the purchase with id.
func (s *Store) DeletePurchasedService(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, purchaseRecords, id)
}

// PurchasedService returns the purchase with id.
func (s *Store) PurchasedService(id string) (PurchasedService, bool) {
	return findRecord(s, purchaseRecords, id)
}

// PurchasedServices returns every purchase in insertion order.
func (s *Store) PurchasedServices() []PurchasedService {
	return listRecords(s, purchaseRecords)
}

// UseSession consumes one session of a package. The purchase completes once
// every session is used; packages without a session count and inactive
// purchases are left untouched.
func (s *Store) UseSession(ctx context.Context, id string) (PurchasedService, bool) {
	var result PurchasedService
	applied, _ := s.mutate(ctx, "use_session", func(d *StoredData, now time.Time) error {
		i := purchaseRecords.index(d.PurchasedServices, id)
		if i < 0 {
			return errNoChange
		}
		p := d.PurchasedServices[i]
		if p.Status != PurchaseActive || p.SessionsTotal <= 0 || p.SessionsUsed >= p.SessionsTotal {
			return errNoChange
		}
		p.SessionsUsed++
		if p.SessionsUsed >= p.SessionsTotal {
			p.Status = PurchaseCompleted
		}
		p.UpdatedAt = now
		d.PurchasedServices = replacedAt(d.PurchasedServices, i, p)
		result = p
		return nil
	})
	return result, applied
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/middlewares"
	"bitbucket.org/cargolink/backend/models"
)

// fakeStorage embeds db.Storage so only the methods a test exercises need an
// implementation; anything else panics loudly.
type fakeStorage struct {
	db.Storage

	mu        sync.Mutex
	payments  map[string]*models.Payment
	inserts   []*db.InsertPaymentOpts
	updates   int
	users     map[int]*models.User
	shipments map[int]*models.Shipment
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		payments:  make(map[string]*models.Payment),
		users:     make(map[int]*models.User),
		shipments: make(map[int]*models.Shipment),
	}
}

func paymentStatusByID(statusID int) *models.PaymentStatus {
	switch statusID {
	case db.ConstPaymentStatuses.Pending.ID:
		s := db.ConstPaymentStatuses.Pending
		return &s
	case db.ConstPaymentStatuses.Completed.ID:
		s := db.ConstPaymentStatuses.Completed
		return &s
	case db.ConstPaymentStatuses.Failed.ID:
		s := db.ConstPaymentStatuses.Failed
		return &s
	}
	return nil
}

// clonePayment mimics a fresh database read: mutations on a returned payment
// must never leak into the stored row.
func clonePayment(p *models.Payment) *models.Payment {
	cp := *p
	if p.Status != nil {
		s := *p.Status
		cp.Status = &s
	}
	if p.Method != nil {
		m := *p.Method
		cp.Method = &m
	}
	if p.User != nil {
		u := *p.User
		cp.User = &u
	}
	if p.PaidAt != nil {
		t := *p.PaidAt
		cp.PaidAt = &t
	}
	cp.Metadata = models.ParseMetadata(p.Metadata.Serialize())
	return &cp
}

func (s *fakeStorage) InsertPayment(opts *db.InsertPaymentOpts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts = append(s.inserts, opts)
	s.payments[opts.ID] = &models.Payment{
		ID:            opts.ID,
		User:          &models.User{ID: opts.UserID},
		Method:        db.PaymentMethodByID(opts.MethodID),
		Status:        paymentStatusByID(opts.StatusID),
		Amount:        opts.Amount,
		Currency:      opts.Currency,
		Description:   opts.Description,
		TransactionID: opts.TransactionID,
		Metadata:      models.ParseMetadata(opts.Metadata),
	}
	return nil
}

func (s *fakeStorage) GetPaymentByID(paymentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (s *fakeStorage) GetPaymentByTransactionID(transactionID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.TransactionID == transactionID {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (s *fakeStorage) UpdatePaymentReconcile(opts *db.UpdatePaymentReconcileOpts) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[opts.ID]
	if !ok {
		return false, nil
	}
	if p.Status.ID != opts.ExpectedStatusID {
		return false, nil
	}

	p.Status = paymentStatusByID(opts.StatusID)
	if opts.PaidAt != nil {
		t := *opts.PaidAt
		p.PaidAt = &t
	} else {
		p.PaidAt = nil
	}
	if p.TransactionID == "" && opts.TransactionID != "" {
		p.TransactionID = opts.TransactionID
	}
	p.Metadata = models.ParseMetadata(opts.Metadata)

	s.updates++
	return true, nil
}

func (s *fakeStorage) GetUserByID(userID int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (s *fakeStorage) GetShipmentByID(shipmentID int) (*models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shipment, ok := s.shipments[shipmentID]
	if !ok {
		return nil, nil
	}
	return shipment, nil
}

func (s *fakeStorage) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func shipperInfo(userID int) map[string]interface{} {
	return map[string]interface{}{
		"ID":        userID,
		"IsAdmin":   false,
		"IsShipper": true,
		"IsCarrier": false,
		"IsAPI":     false,
		"Read":      false,
		"Roles":     []int{db.ConstRoles.Shipper},
		"Email":     "shipper@example.com",
	}
}

func newJSONRequest(t *testing.T, method string, target string, body string, user map[string]interface{}) *http.Request {
	t.Helper()

	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if user != nil {
		r = r.WithContext(context.WithValue(r.Context(), "user", user))
	}
	return r
}

func newResponse() (*httptest.ResponseRecorder, *middlewares.ResponseWriter) {
	recorder := httptest.NewRecorder()
	return recorder, middlewares.NewResponseWriter(recorder)
}

package correlator_test

import (
	"context"
	"time"

	"beacon-alerts/internal/models"
	"beacon-alerts/internal/repository"
)

// fakePressTx is an in-memory stand-in for the serialized press
// transaction.
type fakePressTx struct {
	now    time.Time
	active *models.Session

	activeErr error
	createErr error
	saveErr   error
	commitErr error

	created    *models.Session
	saved      *models.Session
	committed  bool
	rolledBack bool
}

func (t *fakePressTx) CurrentTime(ctx context.Context) (time.Time, error) {
	return t.now, nil
}

func (t *fakePressTx) ActiveSessionForDevice(ctx context.Context, deviceID string) (*models.Session, error) {
	if t.activeErr != nil {
		return nil, t.activeErr
	}
	return t.active, nil
}

func (t *fakePressTx) CreateSession(ctx context.Context, session *models.Session) error {
	if t.createErr != nil {
		return t.createErr
	}
	session.ID = "session-1"
	session.CreatedAt = t.now
	session.UpdatedAt = t.now
	t.created = session
	return nil
}

func (t *fakePressTx) SaveSession(ctx context.Context, session *models.Session) error {
	if t.saveErr != nil {
		return t.saveErr
	}
	session.UpdatedAt = t.now
	t.saved = session
	return nil
}

func (t *fakePressTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakePressTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeSessionStore struct {
	tx       *fakePressTx
	beginErr error
	began    bool
}

func (s *fakeSessionStore) BeginPressTx(ctx context.Context) (repository.PressTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.began = true
	return s.tx, nil
}

type fakeTenantStore struct {
	tenant *models.Tenant
	err    error
}

func (s *fakeTenantStore) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tenant, nil
}

// fakeNotifier records every outbound intent.
type fakeNotifier struct {
	started   []models.SessionAlert
	updates   []models.SessionAlert
	vitals    []models.VitalsNotification
	summaries []models.TenantStatusSummary
}

func (n *fakeNotifier) StartAlertSession(ctx context.Context, alert models.SessionAlert) error {
	n.started = append(n.started, alert)
	return nil
}

func (n *fakeNotifier) SendAlertSessionUpdate(ctx context.Context, alert models.SessionAlert) error {
	n.updates = append(n.updates, alert)
	return nil
}

func (n *fakeNotifier) SendVitalsNotification(ctx context.Context, notification models.VitalsNotification) error {
	n.vitals = append(n.vitals, notification)
	return nil
}

func (n *fakeNotifier) SendTenantSummary(ctx context.Context, summary models.TenantStatusSummary) error {
	n.summaries = append(n.summaries, summary)
	return nil
}

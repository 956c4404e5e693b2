//go:build unit

package commands_test

import (
	"context"
	"time"

	"vendfleet/internal/domain/alert"
	"vendfleet/internal/domain/machine"
	"vendfleet/internal/domain/operator"
	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

// In-memory implementations of the transaction ports. Each stub keeps what
// the command wrote so assertions can inspect side effects directly.

type stubTx struct {
	machines      *stubMachineRepo
	sessions      *stubSessionRepo
	refillLogs    *stubRefillLogRepo
	sales         *stubSaleRepo
	alerts        *stubAlertRepo
	devices       *stubDeviceRepo
	notifications *stubNotificationRepo
}

func newStubTx() *stubTx {
	return &stubTx{
		machines:      &stubMachineRepo{byID: map[uuid.UUID]*machine.Machine{}},
		sessions:      &stubSessionRepo{byMachine: map[uuid.UUID]*machine.RefillSession{}},
		refillLogs:    &stubRefillLogRepo{},
		sales:         &stubSaleRepo{},
		alerts:        &stubAlertRepo{},
		devices:       &stubDeviceRepo{},
		notifications: &stubNotificationRepo{},
	}
}

func (t *stubTx) Machines() shared.MachineRepository           { return t.machines }
func (t *stubTx) Sessions() shared.RefillSessionRepository     { return t.sessions }
func (t *stubTx) RefillLogs() shared.RefillLogRepository       { return t.refillLogs }
func (t *stubTx) Sales() shared.SaleRepository                 { return t.sales }
func (t *stubTx) Alerts() shared.AlertRepository               { return t.alerts }
func (t *stubTx) Devices() shared.DeviceRepository             { return t.devices }
func (t *stubTx) Notifications() shared.NotificationRepository { return t.notifications }
func (t *stubTx) DB() db.DBTX                                  { return nil }

type stubUoW struct {
	tx *stubTx
}

func newStubUoW() (*stubUoW, *stubTx) {
	tx := newStubTx()
	return &stubUoW{tx: tx}, tx
}

func (u *stubUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, u.tx)
}

func (u *stubUoW) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

func notFound(msg string) error {
	return infra.WrapRepoErr(msg, nil, infra.KindNotFound)
}

func duplicateKey(msg string) error {
	return infra.WrapRepoErr(msg, nil, infra.KindDuplicateKey)
}

type stubMachineRepo struct {
	byID      map[uuid.UUID]*machine.Machine
	saved     []*machine.Machine
	created   []*machine.Machine
	createErr error
}

func (r *stubMachineRepo) add(m *machine.Machine) {
	r.byID[m.ID()] = m
}

func (r *stubMachineRepo) FindByID(ctx context.Context, id uuid.UUID) (*machine.Machine, error) {
	return r.FindByIDForUpdate(ctx, id)
}

func (r *stubMachineRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*machine.Machine, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, notFound("machine not found")
	}
	return m, nil
}

func (r *stubMachineRepo) FindByCode(_ context.Context, code string) (*machine.Machine, error) {
	for _, m := range r.byID {
		if m.Code().String() == code {
			return m, nil
		}
	}
	return nil, notFound("machine not found")
}

func (r *stubMachineRepo) Create(_ context.Context, m *machine.Machine) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[m.ID()] = m
	r.created = append(r.created, m)
	return nil
}

func (r *stubMachineRepo) Save(_ context.Context, m *machine.Machine) error {
	r.byID[m.ID()] = m
	r.saved = append(r.saved, m)
	return nil
}

func (r *stubMachineRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return notFound("machine not found")
	}
	delete(r.byID, id)
	return nil
}

type stubSessionRepo struct {
	byMachine map[uuid.UUID]*machine.RefillSession
	deleted   []uuid.UUID
}

func (r *stubSessionRepo) Create(_ context.Context, s *machine.RefillSession) error {
	if _, ok := r.byMachine[s.MachineID()]; ok {
		return duplicateKey("refill session already exists")
	}
	r.byMachine[s.MachineID()] = s
	return nil
}

func (r *stubSessionRepo) FindByMachineID(_ context.Context, machineID uuid.UUID) (*machine.RefillSession, error) {
	s, ok := r.byMachine[machineID]
	if !ok {
		return nil, notFound("refill session not found")
	}
	return s, nil
}

func (r *stubSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	for machineID, s := range r.byMachine {
		if s.ID() == id {
			delete(r.byMachine, machineID)
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return notFound("refill session not found")
}

func (r *stubSessionRepo) ListStartedBefore(_ context.Context, cutoff time.Time) ([]*machine.RefillSession, error) {
	var out []*machine.RefillSession
	for _, s := range r.byMachine {
		if s.StartedAt().Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubRefillLogRepo struct {
	records []shared.RefillLogRecord
}

func (r *stubRefillLogRepo) Create(_ context.Context, rec shared.RefillLogRecord) error {
	r.records = append(r.records, rec)
	return nil
}

type stubSaleRepo struct {
	records []shared.SaleRecord
}

func (r *stubSaleRepo) Create(_ context.Context, rec shared.SaleRecord) error {
	r.records = append(r.records, rec)
	return nil
}

type stubAlertRepo struct {
	alerts []*alert.Alert
}

func (r *stubAlertRepo) ofType(t alert.Type) []*alert.Alert {
	var out []*alert.Alert
	for _, a := range r.alerts {
		if a.Type() == t {
			out = append(out, a)
		}
	}
	return out
}

func (r *stubAlertRepo) FindRecentUnresolved(_ context.Context, machineID uuid.UUID, alertType alert.Type, since time.Time) (*alert.Alert, error) {
	for i := len(r.alerts) - 1; i >= 0; i-- {
		a := r.alerts[i]
		if a.MachineID() == machineID && a.Type() == alertType && !a.IsResolved() && a.CreatedAt().After(since) {
			return a, nil
		}
	}
	return nil, notFound("alert not found")
}

func (r *stubAlertRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	for _, a := range r.alerts {
		if a.ID() == id {
			return a, nil
		}
	}
	return nil, notFound("alert not found")
}

func (r *stubAlertRepo) Create(_ context.Context, a *alert.Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *stubAlertRepo) Save(_ context.Context, _ *alert.Alert) error {
	return nil
}

type stubDeviceRepo struct {
	records []shared.DeviceRecord
}

func (r *stubDeviceRepo) Create(_ context.Context, rec shared.DeviceRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *stubDeviceRepo) FindByAPIKey(_ context.Context, apiKey string) (*shared.DeviceRecord, error) {
	for i := range r.records {
		if r.records[i].APIKey == apiKey {
			return &r.records[i], nil
		}
	}
	return nil, notFound("device not found")
}

func (r *stubDeviceRepo) DeleteByMachineID(_ context.Context, machineID uuid.UUID) error {
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.MachineID != machineID {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

type notificationJob struct {
	kind    string
	topic   string
	payload []byte
	runAt   time.Time
}

type stubNotificationRepo struct {
	jobs []notificationJob
}

func (r *stubNotificationRepo) CreateJob(_ context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	r.jobs = append(r.jobs, notificationJob{kind: kind, topic: topic, payload: payload, runAt: runAt})
	return nil
}

type stubOperatorRepo struct {
	byEmail map[string]*operator.Operator
	created []*operator.Operator
}

func newStubOperatorRepo() *stubOperatorRepo {
	return &stubOperatorRepo{byEmail: map[string]*operator.Operator{}}
}

func (r *stubOperatorRepo) FindByEmail(_ context.Context, email string) (*operator.Operator, error) {
	o, ok := r.byEmail[email]
	if !ok {
		return nil, notFound("operator not found")
	}
	return o, nil
}

func (r *stubOperatorRepo) FindByID(_ context.Context, id uuid.UUID) (*operator.Operator, error) {
	for _, o := range r.byEmail {
		if o.ID() == id {
			return o, nil
		}
	}
	return nil, notFound("operator not found")
}

func (r *stubOperatorRepo) Create(_ context.Context, o *operator.Operator) error {
	if _, ok := r.byEmail[o.Email().String()]; ok {
		return duplicateKey("email already registered")
	}
	r.byEmail[o.Email().String()] = o
	r.created = append(r.created, o)
	return nil
}

type stubPushSubscriptionRepo struct {
	subs map[string]shared.PushSubscriptionRecord
}

func newStubPushSubscriptionRepo() *stubPushSubscriptionRepo {
	return &stubPushSubscriptionRepo{subs: map[string]shared.PushSubscriptionRecord{}}
}

func (r *stubPushSubscriptionRepo) Upsert(_ context.Context, sub shared.PushSubscriptionRecord) error {
	r.subs[sub.Endpoint] = sub
	return nil
}

func (r *stubPushSubscriptionRepo) ListAll(_ context.Context) ([]shared.PushSubscriptionRecord, error) {
	out := make([]shared.PushSubscriptionRecord, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (r *stubPushSubscriptionRepo) DeleteByEndpoint(_ context.Context, endpoint string) error {
	delete(r.subs, endpoint)
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samrato/QMMMUST/internal/mail"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
	"github.com/samrato/QMMMUST/internal/utils"
)

const testKey = "0123456789abcdef0123456789abcdef"

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *fakeMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type testEnv struct {
	store    *store.Store
	mailer   *fakeMailer
	issuer   *PassIssuer
	emitter  *AlertEmitter
	verifier *ScanVerifier
	audit    *AuditReader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cipher, err := utils.NewCipher(testKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	mailer := &fakeMailer{}
	emitter := NewAlertEmitter(st, mailer, time.Second)
	t.Cleanup(emitter.Wait)

	return &testEnv{
		store:    st,
		mailer:   mailer,
		issuer:   NewPassIssuer(st, cipher, mailer, 24*time.Hour, time.Second),
		emitter:  emitter,
		verifier: NewScanVerifier(st, cipher, emitter),
		audit:    NewAuditReader(st),
	}
}

func (e *testEnv) seedStudent(t *testing.T, name, tag string) (*models.Identity, *models.Device) {
	t.Helper()
	ctx := context.Background()

	identity := &models.Identity{
		RegistrationNumber: "REG-" + name,
		Name:               name,
		Email:              name + "@campus.test",
		Role:               models.RoleStudent,
		PasswordHash:       "student123",
		Active:             true,
	}
	if err := e.store.CreateIdentity(ctx, identity); err != nil {
		t.Fatalf("create identity: %v", err)
	}
	device := &models.Device{IdentityID: identity.ID, RFIDTag: tag, DeviceName: "DEV-1", DeviceType: "laptop"}
	if err := e.store.CreateDevice(ctx, device); err != nil {
		t.Fatalf("create device: %v", err)
	}
	return identity, device
}

func (e *testEnv) issueWithPIN(t *testing.T, identity *models.Identity, device *models.Device, pin string) *models.GatePass {
	t.Helper()
	e.issuer.generatePIN = func() (string, error) { return pin, nil }
	issued, err := e.issuer.IssuePass(context.Background(), identity.ID, device.ID)
	if err != nil {
		t.Fatalf("issue pass: %v", err)
	}
	return issued.Pass
}

func scan(tag, pin string) ScanRequest {
	return ScanRequest{RFIDTag: tag, PIN: pin, GateName: "Main Gate", Direction: models.DirectionExit, SourceIP: "10.0.0.5"}
}

func (e *testEnv) failedAttempts(t *testing.T) []models.FailedAttempt {
	t.Helper()
	items, _, err := e.store.ListFailedAttempts(context.Background(), store.FailedAttemptFilter{})
	if err != nil {
		t.Fatalf("list failed attempts: %v", err)
	}
	return items
}

func (e *testEnv) movements(t *testing.T) []models.Movement {
	t.Helper()
	items, _, err := e.store.ListMovements(context.Background(), store.MovementFilter{})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	return items
}

func (e *testEnv) alerts(t *testing.T) []models.Alert {
	t.Helper()
	items, _, err := e.store.ListAlerts(context.Background(), store.AlertFilter{})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	return items
}

var errSMTPDown = errors.New("smtp down")

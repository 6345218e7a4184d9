package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samrato/QMMMUST/internal/guard"
	"github.com/samrato/QMMMUST/internal/models"
)

func TestAliceExitScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	env.issueWithPIN(t, alice, device, "654321")

	res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Decision != Approved || !res.NotificationSent {
		t.Fatalf("expected approval with notification, got %+v", res)
	}
	if res.Identity == nil || res.Identity.Email != "alice@campus.test" {
		t.Fatalf("expected alice in result, got %+v", res.Identity)
	}
	env.emitter.Wait()

	movements := env.movements(t)
	if len(movements) != 1 {
		t.Fatalf("expected one movement, got %d", len(movements))
	}
	if movements[0].Status != models.MovementApproved || movements[0].GateDirection != models.DirectionExit {
		t.Fatalf("unexpected movement %+v", movements[0])
	}
	if movements[0].IdentityID != alice.ID || movements[0].DeviceID != device.ID {
		t.Fatalf("movement not tied to the owner and device: %+v", movements[0])
	}

	alerts := env.alerts(t)
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	if alerts[0].RecipientEmail != "alice@campus.test" || alerts[0].MovementID != movements[0].ID {
		t.Fatalf("unexpected alert %+v", alerts[0])
	}
	if alerts[0].AlertType != models.AlertDeviceExit || !strings.Contains(alerts[0].Message, "has exited campus premises") {
		t.Fatalf("unexpected alert content %+v", alerts[0])
	}
	if !alerts[0].Delivered {
		t.Fatalf("expected alert delivered by background dispatch")
	}

	res, err = env.verifier.VerifyScan(ctx, scan("RFID001A", "000000"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Decision != Denied || res.Message != "Invalid PIN" {
		t.Fatalf("expected invalid pin denial, got %+v", res)
	}
	attempts := env.failedAttempts(t)
	if len(attempts) != 1 || attempts[0].Reason != models.ReasonInvalidPIN {
		t.Fatalf("expected one invalid_pin attempt, got %+v", attempts)
	}
	if attempts[0].DeviceID == nil || *attempts[0].DeviceID != device.ID {
		t.Fatalf("expected device reference on attempt")
	}
	if len(env.movements(t)) != 1 {
		t.Fatalf("denial must not add a movement")
	}
}

func TestUnknownTagDenied(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.verifier.VerifyScan(context.Background(), scan("NOPE-999", "123456"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Decision != Denied || res.Reason != models.ReasonDeviceNotFound {
		t.Fatalf("expected device_not_found, got %+v", res)
	}

	attempts := env.failedAttempts(t)
	if len(attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(attempts))
	}
	if attempts[0].DeviceID != nil {
		t.Fatalf("unknown tag must not carry a device reference")
	}
	if attempts[0].IPAddress != "10.0.0.5" {
		t.Fatalf("expected source ip recorded, got %q", attempts[0].IPAddress)
	}
}

func TestDeviceWithoutPassIsInvalidPIN(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "bob", "RFID002B")

	res, err := env.verifier.VerifyScan(context.Background(), scan("RFID002B", "123456"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Reason != models.ReasonInvalidPIN {
		t.Fatalf("expected invalid_pin, got %s", res.Reason)
	}
	if n := len(env.failedAttempts(t)); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}

func TestTagAndPINAreTrimmed(t *testing.T) {
	env := newTestEnv(t)
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	env.issueWithPIN(t, alice, device, "654321")

	req := scan("  RFID001A\t", " 654321 ")
	req.Direction = " EXIT "
	res, err := env.verifier.VerifyScan(context.Background(), req)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Approved() {
		t.Fatalf("expected approval after trimming, got %+v", res)
	}
}

func TestSupersededPINDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, device := env.seedStudent(t, "alice", "RFID001A")

	env.issueWithPIN(t, alice, device, "111111")
	env.issueWithPIN(t, alice, device, "222222")

	res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "111111"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Decision != Denied || res.Reason != models.ReasonInvalidPIN {
		t.Fatalf("expected superseded pin denied, got %+v", res)
	}

	res, err = env.verifier.VerifyScan(ctx, scan("RFID001A", "222222"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Approved() {
		t.Fatalf("expected latest pin approved, got %+v", res)
	}
}

func TestPINIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	env.issueWithPIN(t, alice, device, "654321")

	if res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321")); err != nil || !res.Approved() {
		t.Fatalf("expected first scan approved, got %+v err=%v", res, err)
	}
	res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Decision != Denied || res.Reason != models.ReasonPassConsumed {
		t.Fatalf("expected reuse denied as pass_consumed, got %+v", res)
	}
}

func TestExpiredPassDenied(t *testing.T) {
	env := newTestEnv(t)
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	env.issueWithPIN(t, alice, device, "654321")

	env.verifier.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	res, err := env.verifier.VerifyScan(context.Background(), scan("RFID001A", "654321"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Reason != models.ReasonPassExpired {
		t.Fatalf("expected pass_expired, got %+v", res)
	}
	if len(env.movements(t)) != 0 {
		t.Fatalf("expired pass must not produce a movement")
	}
}

func TestConcurrentScansApproveOnce(t *testing.T) {
	env := newTestEnv(t)
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	env.issueWithPIN(t, alice, device, "654321")

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
		denied   int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.verifier.VerifyScan(context.Background(), scan("RFID001A", "654321"))
			if err != nil {
				t.Errorf("verify: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Approved() {
				approved++
			} else {
				denied++
			}
		}()
	}
	wg.Wait()
	env.emitter.Wait()

	if approved != 1 || denied != n-1 {
		t.Fatalf("expected 1 approval and %d denials, got %d and %d", n-1, approved, denied)
	}
	if got := len(env.movements(t)); got != 1 {
		t.Fatalf("expected one movement, got %d", got)
	}
	if got := len(env.alerts(t)); got != 1 {
		t.Fatalf("expected one alert, got %d", got)
	}
	attempts := env.failedAttempts(t)
	if len(attempts) != n-1 {
		t.Fatalf("expected %d failed attempts, got %d", n-1, len(attempts))
	}
	for _, a := range attempts {
		if a.Reason != models.ReasonPassConsumed {
			t.Fatalf("expected pass_consumed, got %s", a.Reason)
		}
	}
}

func TestMalformedScanWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	cases := []ScanRequest{
		{PIN: "123456", GateName: "Main Gate", Direction: models.DirectionEntry},
		{RFIDTag: "RFID001A", GateName: "Main Gate", Direction: models.DirectionEntry},
		{RFIDTag: "RFID001A", PIN: "123456", Direction: models.DirectionEntry},
		{RFIDTag: "RFID001A", PIN: "123456", GateName: "Main Gate", Direction: "sideways"},
	}
	for _, req := range cases {
		if _, err := env.verifier.VerifyScan(context.Background(), req); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %+v, got %v", req, err)
		}
	}
	if n := len(env.failedAttempts(t)); n != 0 {
		t.Fatalf("malformed scans must not be audited, got %d attempts", n)
	}
}

func TestRateLimitedScan(t *testing.T) {
	env := newTestEnv(t)
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	env.issueWithPIN(t, alice, device, "654321")
	env.verifier.SetLimiter(guard.NewInMemory(1, time.Minute))

	ctx := context.Background()
	if _, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "000000")); err != nil {
		t.Fatalf("verify: %v", err)
	}
	res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Reason != models.ReasonRateLimited {
		t.Fatalf("expected rate_limited, got %+v", res)
	}
}

func TestDuplicateScanWithinReplayWindow(t *testing.T) {
	env := newTestEnv(t)
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	env.issueWithPIN(t, alice, device, "654321")
	env.verifier.SetReplayGuard(guard.NewInMemoryReplay(time.Minute))

	ctx := context.Background()
	if res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321")); err != nil || !res.Approved() {
		t.Fatalf("expected approval, got %+v err=%v", res, err)
	}
	res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Reason != models.ReasonDuplicateScan {
		t.Fatalf("expected duplicate_scan, got %+v", res)
	}
}

func TestInternalErrorIsAudited(t *testing.T) {
	env := newTestEnv(t)
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	pass := env.issueWithPIN(t, alice, device, "654321")

	if err := env.store.DB().Model(&models.GatePass{}).
		Where("id = ?", pass.ID).
		UpdateColumn("encrypted_pin", "not-base64!").Error; err != nil {
		t.Fatalf("corrupt pin: %v", err)
	}

	_, err := env.verifier.VerifyScan(context.Background(), scan("RFID001A", "654321"))
	if err == nil {
		t.Fatalf("expected an error for undecryptable pin")
	}

	attempts := env.failedAttempts(t)
	if len(attempts) != 1 || attempts[0].Reason != models.ReasonInternalError {
		t.Fatalf("expected one internal_error attempt, got %+v", attempts)
	}
	if attempts[0].DeviceID == nil || *attempts[0].DeviceID != device.ID {
		t.Fatalf("expected device reference on internal error")
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	var k keyedMutex
	unlockA := k.Lock(1)
	unlockB := k.Lock(2)
	unlockA()
	unlockB()
	if len(k.locks) != 0 {
		t.Fatalf("expected lock table to drain, got %d", len(k.locks))
	}
}

func TestRetryAfterInternalErrorIsJudgedAgain(t *testing.T) {
	env := newTestEnv(t)
	alice, device := env.seedStudent(t, "alice", "RFID001A")
	pass := env.issueWithPIN(t, alice, device, "654321")
	env.verifier.SetReplayGuard(guard.NewInMemoryReplay(time.Minute))

	setPIN := func(value string) {
		t.Helper()
		if err := env.store.DB().Model(&models.GatePass{}).
			Where("id = ?", pass.ID).
			UpdateColumn("encrypted_pin", value).Error; err != nil {
			t.Fatalf("set pin: %v", err)
		}
	}

	setPIN("not-base64!")
	ctx := context.Background()
	if _, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321")); err == nil {
		t.Fatalf("expected an error for undecryptable pin")
	}

	setPIN(pass.EncryptedPIN)
	res, err := env.verifier.VerifyScan(ctx, scan("RFID001A", "654321"))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !res.Approved() {
		t.Fatalf("expected retry to be approved, got %+v", res)
	}

	res, err = env.verifier.VerifyScan(ctx, scan("RFID001A", "654321"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Reason != models.ReasonDuplicateScan {
		t.Fatalf("expected duplicate_scan after a committed decision, got %+v", res)
	}
}

package mail

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/samrato/QMMMUST/internal/utils"
)

func TestSMTPMailerHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// accept and never greet, so the SMTP handshake hangs
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	m := NewSMTPMailer("127.0.0.1", addr.Port, "", "", "gate@campus.test")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = m.Send(ctx, Message{To: "alice@campus.test", Subject: "x", HTMLBody: "<p>x</p>"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("send blocked for %v", elapsed)
	}
}

func TestSMTPMessageCarriesAttachments(t *testing.T) {
	m := NewSMTPMailer("localhost", 25, "", "", "gate@campus.test")
	msg := PassIssuedMessage("alice@campus.test", "Alice", "Laptop", "654321", nil, []byte("png"), []byte("%PDF"))

	var buf bytes.Buffer
	if _, err := m.build(msg).WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"gate-pass-qr.png", "gate-pass.pdf", "alice@campus.test"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected %q in message", want)
		}
	}
}

func TestPassIssuedMessageEscapesNames(t *testing.T) {
	msg := PassIssuedMessage("a@b.c", "<script>", "Laptop", "000001", nil, nil, nil)
	if strings.Contains(msg.HTMLBody, "<script>") {
		t.Fatalf("expected holder name escaped")
	}
	if len(msg.Attachments) != 0 {
		t.Fatalf("expected no attachments, got %d", len(msg.Attachments))
	}
	if !strings.Contains(msg.HTMLBody, "000001") {
		t.Fatalf("expected pin in body")
	}
}

func TestLogMailerRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (LogMailer{}).Send(ctx, AlertMessage("a@b.c", "hello")); err == nil {
		t.Fatalf("expected cancelled context error")
	}
	if err := (LogMailer{}).Send(context.Background(), AlertMessage("a@b.c", "hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderPassPDF(t *testing.T) {
	png, err := utils.RenderQR(`{"deviceId":1,"rfidTag":"RFID001A"}`)
	if err != nil {
		t.Fatalf("render qr: %v", err)
	}
	expires := time.Now().Add(24 * time.Hour)

	out, err := RenderPassPDF(PassDocument{
		Reference:  "3f2a",
		Holder:     "Alice",
		Regno:      "CS/2021/001",
		DeviceName: "Laptop",
		RFIDTag:    "RFID001A",
		IssuedAt:   time.Now(),
		ExpiresAt:  &expires,
		QRPNG:      png,
	})
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected pdf header")
	}
}

package imgstream

import (
	"testing"
	"time"

	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/display"
	"avaneesh/imgstream-go/pkg/sender"
	"avaneesh/imgstream-go/pkg/viewer"
)

func TestManager_AddRemoveChannel(t *testing.T) {
	m := NewManagerWithLogger(NewNoOpLogger())
	left, _ := channel.NewPipe(4)

	ch, err := m.AddChannel("a", left)
	if err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}
	if ch.ID() != "a" {
		t.Errorf("ID() = %q, want %q", ch.ID(), "a")
	}
	if _, err := m.AddChannel("a", left); err == nil {
		t.Errorf("AddChannel() with duplicate ID succeeded")
	}
	if m.ChannelCount() != 1 {
		t.Errorf("ChannelCount() = %d, want 1", m.ChannelCount())
	}
	if _, ok := m.GetChannel("a"); !ok {
		t.Errorf("GetChannel(a) not found")
	}

	if err := ch.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if m.ChannelCount() != 0 {
		t.Errorf("ChannelCount() = %d after Shutdown, want 0", m.ChannelCount())
	}
	if err := m.RemoveChannel("a"); err == nil {
		t.Errorf("RemoveChannel() of removed channel succeeded")
	}
}

func TestManager_ViewerAndSender(t *testing.T) {
	m := NewManagerWithLogger(NewNoOpLogger())
	defer m.Shutdown()

	left, right := channel.NewPipe(16)
	sendCh, err := m.AddChannel("send", left)
	if err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}
	viewCh, err := m.AddChannel("view", right)
	if err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	s, err := sendCh.AddSender(sender.DefaultConfig())
	if err != nil {
		t.Fatalf("AddSender() error = %v", err)
	}
	defer s.Shutdown()
	// Blank 144x168 1-bit bitmap: rowsize 20, bounds 0,0,144,168
	blob := make([]byte, 12+20*168)
	blob[0], blob[8], blob[10] = 20, 144, 168
	s.SetImage(blob)
	s.Start()

	presenter := display.NewMemory()
	v, err := viewCh.AddViewer(viewer.DefaultConfig(), presenter, nil)
	if err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}
	defer v.Shutdown()
	if err := v.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for presenter.ImageCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for image")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stats := viewCh.Statistics()
	if stats.MessagesRx != 3 {
		t.Errorf("MessagesRx = %d, want 3", stats.MessagesRx)
	}
	if stats.MessagesTx != 1 {
		t.Errorf("MessagesTx = %d, want 1", stats.MessagesTx)
	}
	if stats.ActiveEndpoints != 1 {
		t.Errorf("ActiveEndpoints = %d, want 1", stats.ActiveEndpoints)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

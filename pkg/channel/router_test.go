package channel

import (
	"errors"
	"sync"
	"testing"

	"avaneesh/imgstream-go/pkg/appmsg"
)

// recordingEndpoint collects every message it is given
type recordingEndpoint struct {
	id   string
	typ  EndpointType
	err  error
	mu   sync.Mutex
	msgs []*appmsg.Dictionary
	got  chan struct{}
}

func newRecordingEndpoint(id string, typ EndpointType) *recordingEndpoint {
	return &recordingEndpoint{id: id, typ: typ, got: make(chan struct{}, 100)}
}

func (e *recordingEndpoint) OnMessage(msg *appmsg.Dictionary) error {
	e.mu.Lock()
	e.msgs = append(e.msgs, msg)
	e.mu.Unlock()
	e.got <- struct{}{}
	return e.err
}

func (e *recordingEndpoint) ID() string         { return e.id }
func (e *recordingEndpoint) Type() EndpointType { return e.typ }

func (e *recordingEndpoint) messages() []*appmsg.Dictionary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*appmsg.Dictionary(nil), e.msgs...)
}

func TestRouter_AddRemove(t *testing.T) {
	r := NewRouter()
	a := newRecordingEndpoint("a", EndpointTypeViewer)

	if err := r.AddEndpoint(a); err != nil {
		t.Fatalf("AddEndpoint() error = %v", err)
	}
	if err := r.AddEndpoint(a); err == nil {
		t.Errorf("AddEndpoint(duplicate) error = nil, want error")
	}
	if r.GetEndpointCount() != 1 {
		t.Errorf("GetEndpointCount() = %d, want 1", r.GetEndpointCount())
	}
	if _, ok := r.GetEndpoint("a"); !ok {
		t.Errorf("GetEndpoint(a) not found")
	}

	r.RemoveEndpoint("a")
	if r.GetEndpointCount() != 0 {
		t.Errorf("GetEndpointCount() after remove = %d, want 0", r.GetEndpointCount())
	}
	if err := r.Route(appmsg.NewStatus("x")); err == nil {
		t.Errorf("Route() with no endpoints error = nil, want error")
	}
}

func TestRouter_RouteToAll(t *testing.T) {
	r := NewRouter()
	a := newRecordingEndpoint("a", EndpointTypeViewer)
	b := newRecordingEndpoint("b", EndpointTypeSender)
	b.err = errors.New("rejected")
	_ = r.AddEndpoint(a)
	_ = r.AddEndpoint(b)

	err := r.Route(appmsg.NewStatus("hello"))
	if err == nil || !errors.Is(err, b.err) {
		t.Errorf("Route() error = %v, want wrapped %v", err, b.err)
	}
	if len(a.messages()) != 1 || len(b.messages()) != 1 {
		t.Errorf("deliveries = %d, %d, want 1, 1", len(a.messages()), len(b.messages()))
	}
}

func TestEndpointTypeString(t *testing.T) {
	tests := []struct {
		typ  EndpointType
		want string
	}{
		{EndpointTypeViewer, "Viewer"},
		{EndpointTypeSender, "Sender"},
		{EndpointType(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
